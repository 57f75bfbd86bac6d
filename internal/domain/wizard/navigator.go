// Package wizard implements the single-pane scoring flow used on narrow
// viewports, the desktop grid entry path with low-score escalation, and the
// subskill dialog shared by both.
package wizard

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/rating"
)

// Rater applies a category baseline for an athlete.
type Rater interface {
	SetBaseline(athleteID, categoryID string, v rating.Value) error
}

// SubskillSource lazily loads the subskills of a category.
type SubskillSource interface {
	Subskills(ctx context.Context, categoryID string) ([]model.Subskill, error)
}

// Phase is the coarse navigator state.
type Phase int

// Navigator phases. There is no terminal phase: after a save the caller
// resets the selection and the navigator starts over.
const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseSaveEligible
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseSaveEligible:
		return "save_eligible"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a read-only view of the cursors.
type State struct {
	Phase         Phase
	AthleteID     string
	CategoryID    string
	AthleteIndex  int
	CategoryIndex int
}

// Navigator walks athletes and categories one at a time.
type Navigator struct {
	rater  Rater
	source SubskillSource

	athletes   []string
	categories []string

	athleteIdx  int
	categoryIdx int
	// keepCategory is set by a rating-driven advance and consumed by the next
	// athlete change, which then keeps the category cursor.
	keepCategory bool

	expanded map[string]bool
}

// NewNavigator returns an idle navigator.
func NewNavigator(rater Rater, source SubskillSource) *Navigator {
	return &Navigator{
		rater:    rater,
		source:   source,
		expanded: make(map[string]bool),
	}
}

// SetSelection replaces the ordered athlete and category lists. The active
// athlete is kept when it is still selected; otherwise the first athlete
// becomes active. The category cursor restarts at 0.
func (n *Navigator) SetSelection(athleteIDs, categoryIDs []string) {
	prev, hadPrev := n.activeAthlete()

	n.athletes = slices.Clone(athleteIDs)
	n.categories = slices.Clone(categoryIDs)
	n.athleteIdx = 0
	if hadPrev {
		if i := slices.Index(n.athletes, prev); i >= 0 {
			n.athleteIdx = i
		}
	}
	n.categoryIdx = 0
	n.keepCategory = false
	for id := range n.expanded {
		if !slices.Contains(n.categories, id) {
			delete(n.expanded, id)
		}
	}
}

// State returns the current cursors.
func (n *Navigator) State() State {
	a, _ := n.activeAthlete()
	c, _ := n.activeCategory()
	return State{
		Phase:         n.Phase(),
		AthleteID:     a,
		CategoryID:    c,
		AthleteIndex:  n.athleteIdx,
		CategoryIndex: n.categoryIdx,
	}
}

// Phase derives the coarse state from the cursors.
func (n *Navigator) Phase() Phase {
	switch {
	case len(n.athletes) == 0 || len(n.categories) == 0:
		return PhaseIdle
	case n.athleteIdx == len(n.athletes)-1 && n.categoryIdx == len(n.categories)-1:
		return PhaseSaveEligible
	default:
		return PhaseReady
	}
}

// SelectAthlete makes id the active athlete.
func (n *Navigator) SelectAthlete(id string) error {
	i := slices.Index(n.athletes, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAthlete, id)
	}
	n.changeAthlete(i)
	return nil
}

// NextCategory moves the category cursor forward, clamped at the last one.
func (n *Navigator) NextCategory() {
	if n.categoryIdx < len(n.categories)-1 {
		n.categoryIdx++
	}
}

// PreviousCategory moves the category cursor back, clamped at 0.
func (n *Navigator) PreviousCategory() {
	if n.categoryIdx > 0 {
		n.categoryIdx--
	}
}

// AdvanceAthlete moves to the next athlete. At the last athlete it does
// nothing and returns false; the caller switches its primary action to save.
func (n *Navigator) AdvanceAthlete() bool {
	if n.athleteIdx >= len(n.athletes)-1 {
		return false
	}
	n.changeAthlete(n.athleteIdx + 1)
	return true
}

// RateCategoryBaseline rates the active category of the active athlete. A
// non-nil rating auto-advances to the next athlete while keeping the
// category cursor, so the same category can be scored across athletes.
func (n *Navigator) RateCategoryBaseline(v rating.Value) error {
	a, okA := n.activeAthlete()
	c, okC := n.activeCategory()
	if !okA || !okC {
		return ErrNoSelection
	}
	if err := n.rater.SetBaseline(a, c, v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if n.athleteIdx < len(n.athletes)-1 {
		n.keepCategory = true
		n.AdvanceAthlete()
	}
	return nil
}

// Expand marks a category expanded and returns its subskills, fetched
// through the source the first time.
func (n *Navigator) Expand(ctx context.Context, categoryID string) ([]model.Subskill, error) {
	n.expanded[categoryID] = true
	subs, err := n.source.Subskills(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", categoryID, err)
	}
	return subs, nil
}

// Collapse marks a category collapsed.
func (n *Navigator) Collapse(categoryID string) {
	delete(n.expanded, categoryID)
}

// Expanded reports whether a category is expanded.
func (n *Navigator) Expanded(categoryID string) bool {
	return n.expanded[categoryID]
}

func (n *Navigator) changeAthlete(i int) {
	if i == n.athleteIdx {
		return
	}
	n.athleteIdx = i
	if n.keepCategory {
		n.keepCategory = false
		return
	}
	n.categoryIdx = 0
}

func (n *Navigator) activeAthlete() (string, bool) {
	if n.athleteIdx < 0 || n.athleteIdx >= len(n.athletes) {
		return "", false
	}
	return n.athletes[n.athleteIdx], true
}

func (n *Navigator) activeCategory() (string, bool) {
	if n.categoryIdx < 0 || n.categoryIdx >= len(n.categories) {
		return "", false
	}
	return n.categories[n.categoryIdx], true
}
