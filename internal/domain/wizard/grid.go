package wizard

import (
	"context"

	"github.com/okian/scorecard/internal/domain/rating"
	"github.com/okian/scorecard/pkg/metrics"
)

// LowScoreThreshold is the category rating below which the grid opens the
// subskill dialog. It is fixed on the 1..5 reading regardless of the
// subskills' own scales.
const LowScoreThreshold = 3

// Escalator opens the subskill rating dialog for one athlete/category.
type Escalator interface {
	OpenSubskillDialog(ctx context.Context, athleteID, categoryID string) error
}

// Grid is the desktop category-grid entry path.
type Grid struct {
	rater     Rater
	escalator Escalator
}

// NewGrid returns a grid writing through rater and escalating to escalator.
func NewGrid(rater Rater, escalator Escalator) *Grid {
	return &Grid{rater: rater, escalator: escalator}
}

// RateCategory sets the category baseline. A finite rating below
// LowScoreThreshold then opens the subskill dialog for the same cell; it
// reports whether that happened. A failing dialog load does not undo the
// rating and is returned alongside escalated == true.
func (g *Grid) RateCategory(ctx context.Context, athleteID, categoryID string, v rating.Value) (escalated bool, err error) {
	if err := g.rater.SetBaseline(athleteID, categoryID, v); err != nil {
		return false, err
	}
	f, ok := rating.Finite(v)
	if !ok || f >= LowScoreThreshold {
		return false, nil
	}
	metrics.RecordEscalation()
	return true, g.escalator.OpenSubskillDialog(ctx, athleteID, categoryID)
}
