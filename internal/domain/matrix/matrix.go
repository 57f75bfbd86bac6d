// Package matrix implements the athlete x category x subskill rating matrix.
//
// A Matrix is an immutable value made of two layers:
//   - baselines: athlete -> category -> rating (nil when explicitly unset)
//   - overrides: athlete -> category -> subskill -> rating, holding only
//     values that diverge from the category baseline
//
// Every With*/Without* helper returns a new Matrix and copies only the path it
// touches, so older values stay valid (undo/redo keeps them around). Empty
// inner containers are pruned on every write, never left dangling.
package matrix

import (
	"sort"

	"github.com/okian/scorecard/internal/domain/rating"
)

type (
	categoryBaselines = map[string]rating.Value
	subskillOverrides = map[string]float64
	categoryOverrides = map[string]subskillOverrides
)

// Matrix is the baseline + override rating state of one editing session.
// The zero value is an empty matrix.
type Matrix struct {
	baselines map[string]categoryBaselines
	overrides map[string]categoryOverrides
}

// New returns an empty matrix.
func New() Matrix {
	return Matrix{}
}

// Empty reports whether neither layer holds any entry.
func (m Matrix) Empty() bool {
	return len(m.baselines) == 0 && len(m.overrides) == 0
}

// Baseline returns the category baseline and whether an entry is defined.
// A defined entry may still be nil (explicitly unset).
func (m Matrix) Baseline(athleteID, categoryID string) (rating.Value, bool) {
	v, ok := m.baselines[athleteID][categoryID]
	return rating.Clone(v), ok
}

// Override returns the stored subskill override, if any.
func (m Matrix) Override(athleteID, categoryID, subskillID string) (float64, bool) {
	v, ok := m.overrides[athleteID][categoryID][subskillID]
	return v, ok
}

// Overrides returns a copy of the category's override map for the athlete.
func (m Matrix) Overrides(athleteID, categoryID string) map[string]float64 {
	src := m.overrides[athleteID][categoryID]
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// HasOverrides reports whether any override exists for the athlete/category.
func (m Matrix) HasOverrides(athleteID, categoryID string) bool {
	return len(m.overrides[athleteID][categoryID]) > 0
}

// Effective is override, else baseline, else nil.
func (m Matrix) Effective(athleteID, categoryID, subskillID string) rating.Value {
	if v, ok := m.Override(athleteID, categoryID, subskillID); ok {
		return rating.Of(v)
	}
	v, _ := m.Baseline(athleteID, categoryID)
	return v
}

// Athletes returns every athlete id present in either layer, sorted.
func (m Matrix) Athletes() []string {
	seen := make(map[string]struct{}, len(m.baselines)+len(m.overrides))
	for id := range m.baselines {
		seen[id] = struct{}{}
	}
	for id := range m.overrides {
		seen[id] = struct{}{}
	}
	return sortedKeys(seen)
}

// Categories returns the category ids the athlete has any entry for, sorted.
func (m Matrix) Categories(athleteID string) []string {
	seen := make(map[string]struct{})
	for id := range m.baselines[athleteID] {
		seen[id] = struct{}{}
	}
	for id := range m.overrides[athleteID] {
		seen[id] = struct{}{}
	}
	return sortedKeys(seen)
}

// WithBaseline sets the category baseline without touching overrides.
func (m Matrix) WithBaseline(athleteID, categoryID string, v rating.Value) Matrix {
	inner := make(categoryBaselines, len(m.baselines[athleteID])+1)
	for k, b := range m.baselines[athleteID] {
		inner[k] = b
	}
	inner[categoryID] = rating.Clone(v)

	out := m.shallow()
	out.baselines = copyTop(m.baselines)
	out.baselines[athleteID] = inner
	return out
}

// WithoutBaseline removes the baseline entry entirely.
func (m Matrix) WithoutBaseline(athleteID, categoryID string) Matrix {
	if _, ok := m.baselines[athleteID][categoryID]; !ok {
		return m
	}
	inner := make(categoryBaselines, len(m.baselines[athleteID]))
	for k, b := range m.baselines[athleteID] {
		if k != categoryID {
			inner[k] = b
		}
	}
	out := m.shallow()
	out.baselines = copyTop(m.baselines)
	out.baselines[athleteID] = inner
	out.pruneBaselines(athleteID)
	return out
}

// WithOverride stores a subskill value as-is.
func (m Matrix) WithOverride(athleteID, categoryID, subskillID string, v float64) Matrix {
	return m.editOverrides(athleteID, categoryID, func(subs subskillOverrides) {
		subs[subskillID] = v
	})
}

// WithoutOverride drops one subskill override.
func (m Matrix) WithoutOverride(athleteID, categoryID, subskillID string) Matrix {
	if _, ok := m.overrides[athleteID][categoryID][subskillID]; !ok {
		return m
	}
	return m.editOverrides(athleteID, categoryID, func(subs subskillOverrides) {
		delete(subs, subskillID)
	})
}

// WithoutOverrides drops the whole override map of a category.
func (m Matrix) WithoutOverrides(athleteID, categoryID string) Matrix {
	if _, ok := m.overrides[athleteID][categoryID]; !ok {
		return m
	}
	return m.editOverrides(athleteID, categoryID, func(subs subskillOverrides) {
		clear(subs)
	})
}

// WithoutAthlete drops every entry of the athlete from both layers.
func (m Matrix) WithoutAthlete(athleteID string) Matrix {
	_, inB := m.baselines[athleteID]
	_, inO := m.overrides[athleteID]
	if !inB && !inO {
		return m
	}
	out := m.shallow()
	if inB {
		out.baselines = copyTop(m.baselines)
		delete(out.baselines, athleteID)
	}
	if inO {
		out.overrides = copyTop(m.overrides)
		delete(out.overrides, athleteID)
	}
	return out
}

// editOverrides copies the athlete/category path, applies fn to the fresh
// subskill map and prunes whatever became empty.
func (m Matrix) editOverrides(athleteID, categoryID string, fn func(subskillOverrides)) Matrix {
	subs := make(subskillOverrides, len(m.overrides[athleteID][categoryID])+1)
	for k, v := range m.overrides[athleteID][categoryID] {
		subs[k] = v
	}
	fn(subs)

	cats := make(categoryOverrides, len(m.overrides[athleteID])+1)
	for k, v := range m.overrides[athleteID] {
		cats[k] = v
	}
	cats[categoryID] = subs

	out := m.shallow()
	out.overrides = copyTop(m.overrides)
	out.overrides[athleteID] = cats
	out.pruneOverrides(athleteID)
	return out
}

// pruneOverrides removes empty containers along the athlete's override path.
// The top map and the athlete map must already be private copies.
func (m *Matrix) pruneOverrides(athleteID string) {
	cats, ok := m.overrides[athleteID]
	if !ok {
		return
	}
	for id, subs := range cats {
		if len(subs) == 0 {
			delete(cats, id)
		}
	}
	if len(cats) == 0 {
		delete(m.overrides, athleteID)
	}
}

// pruneBaselines drops the athlete's baseline map once it is empty.
func (m *Matrix) pruneBaselines(athleteID string) {
	if b, ok := m.baselines[athleteID]; ok && len(b) == 0 {
		delete(m.baselines, athleteID)
	}
}

func (m Matrix) shallow() Matrix {
	return Matrix{baselines: m.baselines, overrides: m.overrides}
}

func copyTop[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
