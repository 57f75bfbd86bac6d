package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okian/scorecard/internal/domain/rating"
)

// Catalog is the ordered category -> subskills lookup for one scorecard
// template. Subskill identity is normalized once on ingestion: both ID and
// SkillID resolve to Key().
type Catalog struct {
	mu         sync.RWMutex
	categories []Category
	byID       map[string]int
	subskills  map[string][]Subskill
	aliases    map[string]string // any subskill id -> canonical key
	owner      map[string]string // canonical key -> category id
	fallback   rating.Scale
}

// NewCatalog creates a catalog over categories, ordered by Position.
func NewCatalog(categories []Category) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		byID:       make(map[string]int, len(categories)),
		subskills:  make(map[string][]Subskill, len(categories)),
		aliases:    make(map[string]string),
		owner:      make(map[string]string),
		fallback:   rating.DefaultScale,
	}
	sort.SliceStable(c.categories, func(i, j int) bool {
		return c.categories[i].Position < c.categories[j].Position
	})
	for i, cat := range c.categories {
		c.byID[cat.ID] = i
	}
	return c
}

// AddSubskills records the subskills of a category, replacing any previous
// set. Subskills without any id are dropped.
func (c *Catalog) AddSubskills(categoryID string, subs []Subskill) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[categoryID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	for _, old := range c.subskills[categoryID] {
		delete(c.owner, old.Key())
		delete(c.aliases, old.ID)
		delete(c.aliases, old.SkillID)
	}

	norm := make([]Subskill, 0, len(subs))
	for _, s := range subs {
		key := s.Key()
		if key == "" {
			continue
		}
		s.CategoryID = categoryID
		norm = append(norm, s)
		c.owner[key] = categoryID
		c.aliases[key] = key
		if s.SkillID != "" {
			c.aliases[s.SkillID] = key
		}
	}
	sort.SliceStable(norm, func(i, j int) bool { return norm[i].Position < norm[j].Position })
	c.subskills[categoryID] = norm
	return nil
}

// Categories returns the categories in position order.
func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Category(nil), c.categories...)
}

// CategoryIDs returns the category ids in position order.
func (c *Catalog) CategoryIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.categories))
	for i, cat := range c.categories {
		ids[i] = cat.ID
	}
	return ids
}

// HasCategory reports whether id is a known category.
func (c *Catalog) HasCategory(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[id]
	return ok
}

// Loaded reports whether subskills were recorded for the category.
func (c *Catalog) Loaded(categoryID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subskills[categoryID]
	return ok
}

// Subskills returns the category's subskills in position order.
func (c *Catalog) Subskills(categoryID string) []Subskill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Subskill(nil), c.subskills[categoryID]...)
}

// Resolve maps either subskill id to its canonical key and owning category.
func (c *Catalog) Resolve(id string) (key, categoryID string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.aliases[id]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownSubskill, id)
	}
	return key, c.owner[key], nil
}

// SetFallbackScale sets the scale used for subskills that declare none.
// Unknown scales are ignored.
func (c *Catalog) SetFallbackScale(sc rating.Scale) {
	if !sc.Known() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = sc
}

// SubskillScale returns the scale for a subskill, or the fallback scale when
// the subskill is unknown or declares none.
func (c *Catalog) SubskillScale(id string) rating.Scale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.aliases[id]
	for _, s := range c.subskills[c.owner[key]] {
		if s.Key() == key && declared(s).Known() {
			return declared(s)
		}
	}
	return c.fallback
}

// CategoryScale is the widest scale among the category's subskills, or the
// fallback scale when none declare one.
func (c *Catalog) CategoryScale(categoryID string) rating.Scale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var sc rating.Scale
	for _, s := range c.subskills[categoryID] {
		sc = sc.Widen(declared(s))
	}
	if !sc.Known() {
		return c.fallback
	}
	return sc
}

func declared(s Subskill) rating.Scale {
	return rating.Scale{Min: s.RatingMin, Max: s.RatingMax}
}
