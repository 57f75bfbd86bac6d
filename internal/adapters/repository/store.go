// Package repository is the evaluation persistence collaborator. It stores
// create payloads, applies update operations and loads saved evaluations
// back for hydration.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
)

// Store persists evaluations.
type Store interface {
	// Create stores every evaluation of req and returns their ids in order.
	Create(ctx context.Context, req payload.CreateRequest) ([]string, error)

	// Apply updates the header of an evaluation and applies its operations
	// in order. An upsert with a nil rating deletes the stored item and
	// remove_athlete deletes every item of the athlete.
	// Returns ErrNotFound if the evaluation is unknown.
	Apply(ctx context.Context, evaluationID string, req payload.UpdateRequest) error

	// Load returns a saved evaluation. Categories are left empty; callers
	// resolve them from the catalog by template id.
	// Returns ErrNotFound if the evaluation is unknown.
	Load(ctx context.Context, evaluationID string) (model.Evaluation, error)

	// Close releases the store's resources.
	Close() error
}

// New returns the store selected by driver: "memory" or "sqlite".
func New(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

func validateCreate(req payload.CreateRequest) error {
	if len(req.Evaluations) == 0 {
		return fmt.Errorf("%w: no evaluations", ErrInvalidPayload)
	}
	for i, ev := range req.Evaluations {
		if ev.OrgID == "" || ev.CoachID == "" || ev.ScorecardTemplateID == "" {
			return fmt.Errorf("%w: evaluation %d is missing its identity", ErrInvalidPayload, i)
		}
		for _, it := range ev.Items {
			if it.AthleteID == "" || it.SkillID == "" {
				return fmt.Errorf("%w: evaluation %d has an item without ids", ErrInvalidPayload, i)
			}
		}
	}
	return nil
}

func validateOperations(ops []payload.Operation) error {
	for i, op := range ops {
		switch {
		case op.AthleteID == "":
			return fmt.Errorf("%w: operation %d has no athlete", ErrInvalidPayload, i)
		case op.Type == payload.OpRemoveAthlete:
		case op.Type == payload.OpUpsertRating && op.SubskillID == "":
			return fmt.Errorf("%w: operation %d has no subskill", ErrInvalidPayload, i)
		case op.Type == payload.OpUpsertRating:
		default:
			return fmt.Errorf("%w: operation %d has type %q", ErrInvalidPayload, i, op.Type)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
