package matrix

import (
	"github.com/okian/scorecard/internal/domain/rating"
)

// BulkApply rolls the same baseline out to every athlete x category pair.
// It returns the input matrix and false when the rating is unset or not
// finite, or when either target set is empty. The result replaces the
// caller's state in one step.
func BulkApply(m Matrix, v rating.Value, categoryIDs, athleteIDs []string) (Matrix, bool) {
	f, ok := rating.Finite(v)
	if !ok || len(categoryIDs) == 0 || len(athleteIDs) == 0 {
		return m, false
	}
	out := m
	for _, a := range athleteIDs {
		for _, c := range categoryIDs {
			out = SetBaseline(out, a, c, rating.Of(f))
		}
	}
	return out, true
}
