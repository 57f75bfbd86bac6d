package matrix

import (
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rating"
)

// RecordSubskillRating stores a directly rated subskill in the override
// layer. It is used when no baseline picker is involved, so the value is kept
// even if it happens to equal the aggregate baseline: on this path the
// overrides are the source of truth and the baseline is derived from them.
// Non-finite values clear the entry.
func RecordSubskillRating(m Matrix, athleteID, categoryID, subskillID string, v rating.Value) Matrix {
	f, ok := rating.Finite(v)
	if !ok {
		return m.WithoutOverride(athleteID, categoryID, subskillID)
	}
	return m.WithOverride(athleteID, categoryID, subskillID, f)
}

// RecomputeCategoryScore writes the mean of the category's rated subskills
// into the baseline layer, or nil when none is rated. Overrides are left as
// they are.
func RecomputeCategoryScore(m Matrix, athleteID, categoryID string, subskills []model.Subskill) Matrix {
	values := make([]float64, 0, len(subskills))
	for _, s := range subskills {
		if v, ok := m.Override(athleteID, categoryID, s.Key()); ok {
			values = append(values, v)
		}
	}
	mean, ok := rating.Mean(values)
	if !ok {
		return m.WithBaseline(athleteID, categoryID, nil)
	}
	return m.WithBaseline(athleteID, categoryID, rating.Of(mean))
}
