package payload

import (
	"github.com/okian/scorecard/internal/domain/matrix"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rating"
)

// Diff compares the current matrix against the snapshot taken at load time.
//
// remove_athlete operations come first, in originalAthleteIDs order. Then,
// for every selected athlete and every catalog subskill:
//   - nothing, when both the current and the previous rating are unset
//   - an upsert with a nil rating, when a previous rating was cleared
//   - an upsert with the current rating whenever one is present, even if it
//     equals the previous value (upserts are idempotent server-side)
//
// Non-finite current ratings are skipped. Neither originalAthleteIDs nor
// snap is modified.
func Diff(originalAthleteIDs, selectedAthleteIDs []string, m matrix.Matrix, snap matrix.Snapshot, catalog *model.Catalog) []Operation {
	selected := make(map[string]struct{}, len(selectedAthleteIDs))
	for _, id := range selectedAthleteIDs {
		selected[id] = struct{}{}
	}

	var ops []Operation
	for _, id := range originalAthleteIDs {
		if _, ok := selected[id]; !ok {
			ops = append(ops, Operation{Type: OpRemoveAthlete, AthleteID: id})
		}
	}

	for _, a := range selectedAthleteIDs {
		for _, c := range catalog.CategoryIDs() {
			for _, s := range catalog.Subskills(c) {
				key := s.Key()
				current := m.Effective(a, c, key)
				previous := snap.Get(a, c, key)
				switch {
				case current == nil && previous == nil:
				case current == nil:
					ops = append(ops, Operation{Type: OpUpsertRating, AthleteID: a, SubskillID: key})
				default:
					f, ok := rating.Finite(current)
					if !ok {
						continue
					}
					ops = append(ops, Operation{Type: OpUpsertRating, AthleteID: a, SubskillID: key, Rating: rating.Of(f)})
				}
			}
		}
	}
	return ops
}
