package wizard

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/metrics"
)

// Dialog is the subskill rating dialog. Opening it loads the category's
// subskills; a load that completes after a newer Open, a Close, or a
// Dispose is dropped.
type Dialog struct {
	source SubskillSource
	guard  *Guard

	mu         sync.Mutex
	open       bool
	athleteID  string
	categoryID string
	subskills  []model.Subskill
	loading    bool
}

// NewDialog returns a closed dialog loading from source.
func NewDialog(source SubskillSource) *Dialog {
	return &Dialog{source: source, guard: NewGuard()}
}

// OpenSubskillDialog implements Escalator.
func (d *Dialog) OpenSubskillDialog(ctx context.Context, athleteID, categoryID string) error {
	return d.Open(ctx, athleteID, categoryID)
}

// Open targets the dialog at athlete/category and loads its subskills.
func (d *Dialog) Open(ctx context.Context, athleteID, categoryID string) error {
	if d.guard.Closed() {
		return ErrClosed
	}
	ticket := d.guard.Begin()

	d.mu.Lock()
	if !ticket.Current() {
		d.mu.Unlock()
		return nil
	}
	d.open = true
	d.athleteID, d.categoryID = athleteID, categoryID
	d.subskills = nil
	d.loading = true
	d.mu.Unlock()

	subs, err := d.source.Subskills(ctx, categoryID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !ticket.Current() {
		metrics.RecordStaleDiscarded()
		return nil
	}
	d.loading = false
	if err != nil {
		return fmt.Errorf("load subskills of %s: %w", categoryID, err)
	}
	d.subskills = subs
	return nil
}

// Close hides the dialog and drops any load still in flight.
func (d *Dialog) Close() {
	d.guard.Invalidate()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.loading = false
	d.subskills = nil
}

// Dispose closes the dialog for good; later results and opens are ignored.
func (d *Dialog) Dispose() {
	d.guard.Close()
	d.Close()
}

// Target returns the athlete/category the dialog is open for.
func (d *Dialog) Target() (athleteID, categoryID string, open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.athleteID, d.categoryID, d.open
}

// Loading reports whether a load is outstanding.
func (d *Dialog) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Subskills returns the loaded subskills of the open category.
func (d *Dialog) Subskills() []model.Subskill {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.subskills)
}
