package matrix

import (
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rating"
)

// Snapshot is the frozen per-subskill state of a loaded evaluation. It is
// built once by Hydrate and never mutated afterwards.
type Snapshot struct {
	values map[string]categoryOverrides
}

// Get returns the loaded rating of a subskill, or nil.
func (s Snapshot) Get(athleteID, categoryID, subskillID string) rating.Value {
	v, ok := s.values[athleteID][categoryID][subskillID]
	if !ok {
		return nil
	}
	return rating.Of(v)
}

// Len returns the number of rated subskills in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, cats := range s.values {
		for _, subs := range cats {
			n += len(subs)
		}
	}
	return n
}

// Hydrated is the session state rebuilt from loaded evaluation items.
type Hydrated struct {
	Matrix   Matrix
	Snapshot Snapshot
	// Skipped counts items whose subskill is not in the catalog.
	Skipped int
}

// Hydrate rebuilds the matrix from persisted items.
//
// Baselines follow the loader merge policy: the first item of an
// athlete/category cell seeds the baseline, and each later non-null item sets
// it to the average of the current baseline and the new rating. Every finite
// item is kept in the snapshot, and in the override layer when it differs from
// the resulting baseline, so no per-subskill value is lost.
func Hydrate(catalog *model.Catalog, items []model.LoadedItem) Hydrated {
	base := make(map[string]categoryBaselines)
	raw := make(map[string]categoryOverrides)
	skipped := 0

	for _, it := range items {
		key, categoryID, err := catalog.Resolve(it.SubskillID)
		if err != nil || it.AthleteID == "" {
			skipped++
			continue
		}
		f, finite := rating.Finite(it.Rating)

		if base[it.AthleteID] == nil {
			base[it.AthleteID] = make(categoryBaselines)
		}
		current, defined := base[it.AthleteID][categoryID]
		switch {
		case !defined:
			if finite {
				base[it.AthleteID][categoryID] = rating.Of(f)
			} else {
				base[it.AthleteID][categoryID] = nil
			}
		case finite && current == nil:
			base[it.AthleteID][categoryID] = rating.Of(f)
		case finite:
			base[it.AthleteID][categoryID] = rating.Of((*current + f) / 2)
		}

		if !finite {
			continue
		}
		if raw[it.AthleteID] == nil {
			raw[it.AthleteID] = make(categoryOverrides)
		}
		if raw[it.AthleteID][categoryID] == nil {
			raw[it.AthleteID][categoryID] = make(subskillOverrides)
		}
		raw[it.AthleteID][categoryID][key] = f
	}

	overrides := make(map[string]categoryOverrides)
	for a, cats := range raw {
		for c, subs := range cats {
			b := base[a][c]
			for s, v := range subs {
				if b != nil && *b == v {
					continue
				}
				if overrides[a] == nil {
					overrides[a] = make(categoryOverrides)
				}
				if overrides[a][c] == nil {
					overrides[a][c] = make(subskillOverrides)
				}
				overrides[a][c][s] = v
			}
		}
	}

	return Hydrated{
		Matrix:   Matrix{baselines: base, overrides: overrides},
		Snapshot: Snapshot{values: raw},
		Skipped:  skipped,
	}
}

// Capture freezes the effective ratings of athleteIDs over every catalog
// subskill. It is the snapshot a later Diff compares against once the
// current matrix has been persisted.
func Capture(m Matrix, catalog *model.Catalog, athleteIDs []string) Snapshot {
	values := make(map[string]categoryOverrides)
	for _, a := range athleteIDs {
		for _, c := range catalog.CategoryIDs() {
			for _, s := range catalog.Subskills(c) {
				f, ok := rating.Finite(m.Effective(a, c, s.Key()))
				if !ok {
					continue
				}
				if values[a] == nil {
					values[a] = make(categoryOverrides)
				}
				if values[a][c] == nil {
					values[a][c] = make(subskillOverrides)
				}
				values[a][c][s.Key()] = f
			}
		}
	}
	return Snapshot{values: values}
}
