package matrix

import (
	"github.com/okian/scorecard/internal/domain/rating"
)

// SetBaseline sets the category baseline and clears every override of that
// category for the athlete. Rollout always wins; there is no merge.
func SetBaseline(m Matrix, athleteID, categoryID string, v rating.Value) Matrix {
	return m.WithBaseline(athleteID, categoryID, v).WithoutOverrides(athleteID, categoryID)
}

// SetOverride records a per-subskill rating. A nil value, or a value equal to
// the current non-nil baseline, removes the override instead of storing it.
func SetOverride(m Matrix, athleteID, categoryID, subskillID string, v rating.Value) Matrix {
	f, ok := rating.Finite(v)
	if !ok {
		return m.WithoutOverride(athleteID, categoryID, subskillID)
	}
	if base, _ := m.Baseline(athleteID, categoryID); base != nil && *base == f {
		return m.WithoutOverride(athleteID, categoryID, subskillID)
	}
	return m.WithOverride(athleteID, categoryID, subskillID, f)
}

// EffectiveRating is the displayed rating of a subskill.
func EffectiveRating(m Matrix, athleteID, categoryID, subskillID string) rating.Value {
	return m.Effective(athleteID, categoryID, subskillID)
}
