package payload

import (
	"github.com/okian/scorecard/internal/domain/matrix"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rating"
)

// BuildItems flattens the matrix into one item per (athlete, subskill) pair
// that resolves to a finite rating.
//
// Categories with a non-nil baseline emit override-or-baseline for every
// subskill. Categories with no baseline entry at all but with overrides emit
// the overrides only. A defined-but-nil baseline emits nothing, so a subskill
// is never emitted twice. Output order follows athletes, then catalog order.
func BuildItems(athleteIDs []string, m matrix.Matrix, catalog *model.Catalog) []Item {
	var items []Item
	for _, a := range athleteIDs {
		for _, c := range catalog.CategoryIDs() {
			baseline, defined := m.Baseline(a, c)
			switch {
			case defined && baseline != nil:
				for _, s := range catalog.Subskills(c) {
					items = appendItem(items, a, s.Key(), m.Effective(a, c, s.Key()))
				}
			case !defined && m.HasOverrides(a, c):
				for _, s := range catalog.Subskills(c) {
					v, ok := m.Override(a, c, s.Key())
					if !ok {
						continue
					}
					items = appendItem(items, a, s.Key(), rating.Of(v))
				}
			}
		}
	}
	return items
}

func appendItem(items []Item, athleteID, subskillID string, v rating.Value) []Item {
	f, ok := rating.Finite(v)
	if !ok {
		return items
	}
	return append(items, Item{AthleteID: athleteID, SkillID: subskillID, Rating: f})
}
