package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	"github.com/okian/scorecard/pkg/logger"
)

type itemKey struct {
	athleteID  string
	subskillID string
}

type storedItem struct {
	rating   float64
	comments *string
}

type record struct {
	orgID      string
	templateID string
	teamID     string
	coachID    string
	notes      string
	items      map[itemKey]storedItem
	createdAt  time.Time
	updatedAt  time.Time
}

// MemoryStore keeps evaluations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
	opts    options
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{records: make(map[string]*record), opts: o}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, req payload.CreateRequest) ([]string, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(req.Evaluations))
	for _, ev := range req.Evaluations {
		rec := &record{
			orgID:      ev.OrgID,
			templateID: ev.ScorecardTemplateID,
			teamID:     deref(ev.TeamID),
			coachID:    ev.CoachID,
			notes:      deref(ev.Notes),
			items:      make(map[itemKey]storedItem, len(ev.Items)),
			createdAt:  now,
			updatedAt:  now,
		}
		for _, it := range ev.Items {
			rec.items[itemKey{it.AthleteID, it.SkillID}] = storedItem{rating: it.Rating, comments: it.Comments}
		}
		id := uuid.NewString()
		s.records[id] = rec
		ids = append(ids, id)
		s.opts.logger.Debug(ctx, "evaluation created",
			logger.String("evaluationID", id),
			logger.Int("items", len(rec.items)),
		)
	}
	return ids, nil
}

// Apply implements Store.
func (s *MemoryStore) Apply(ctx context.Context, evaluationID string, req payload.UpdateRequest) error {
	if err := validateOperations(req.Operations); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[evaluationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}
	// Work on a copy so a failing operation leaves the record untouched.
	items := make(map[itemKey]storedItem, len(rec.items))
	for k, v := range rec.items {
		items[k] = v
	}
	for i, op := range req.Operations {
		switch op.Type {
		case payload.OpRemoveAthlete:
			for k := range items {
				if k.athleteID == op.AthleteID {
					delete(items, k)
				}
			}
		case payload.OpUpsertRating:
			key := itemKey{op.AthleteID, op.SubskillID}
			if op.Rating == nil {
				delete(items, key)
				continue
			}
			f, ok := rating.Finite(op.Rating)
			if !ok {
				return fmt.Errorf("%w: operation %d: %w", ErrInvalidPayload, i, rating.ErrNotFinite)
			}
			items[key] = storedItem{rating: f, comments: op.Comments}
		}
	}

	rec.items = items
	rec.orgID = req.OrgID
	rec.templateID = req.TemplateID
	rec.teamID = deref(req.TeamID)
	rec.coachID = req.CoachID
	rec.notes = deref(req.Notes)
	rec.updatedAt = s.opts.now()
	s.opts.logger.Debug(ctx, "evaluation updated",
		logger.String("evaluationID", evaluationID),
		logger.Int("operations", len(req.Operations)),
	)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, evaluationID string) (model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[evaluationID]
	if !ok {
		return model.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}
	keys := make([]itemKey, 0, len(rec.items))
	for k := range rec.items {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b itemKey) int {
		return cmp.Or(cmp.Compare(a.athleteID, b.athleteID), cmp.Compare(a.subskillID, b.subskillID))
	})

	ev := model.Evaluation{
		ID:         evaluationID,
		OrgID:      rec.orgID,
		TemplateID: rec.templateID,
		TeamID:     rec.teamID,
		CoachID:    rec.coachID,
		Notes:      rec.notes,
		Items:      make([]model.LoadedItem, 0, len(keys)),
	}
	for _, k := range keys {
		ev.Items = append(ev.Items, model.LoadedItem{
			AthleteID:  k.athleteID,
			SubskillID: k.subskillID,
			Rating:     rating.Of(rec.items[k].rating),
		})
		if n := len(ev.Athletes); n == 0 || ev.Athletes[n-1].ID != k.athleteID {
			ev.Athletes = append(ev.Athletes, model.Athlete{ID: k.athleteID, TeamID: rec.teamID})
		}
	}
	return ev, nil
}

// Len returns the number of stored evaluations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
