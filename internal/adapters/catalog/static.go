package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/scorecard/internal/domain/model"
)

// Static is an in-memory Provider. It backs the replay tool and tests.
type Static struct {
	mu         sync.RWMutex
	categories map[string][]model.Category
	subskills  map[string][]model.Subskill

	subskillCalls atomic.Int64
}

// NewStatic returns an empty Static provider.
func NewStatic() *Static {
	return &Static{
		categories: make(map[string][]model.Category),
		subskills:  make(map[string][]model.Subskill),
	}
}

// AddTemplate registers the categories of a template.
func (s *Static) AddTemplate(templateID string, categories []model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[templateID] = append([]model.Category(nil), categories...)
}

// AddSubskills registers the subskills of a category.
func (s *Static) AddSubskills(categoryID string, subs []model.Subskill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subskills[categoryID] = append([]model.Subskill(nil), subs...)
}

// Categories implements Provider.
func (s *Static) Categories(_ context.Context, templateID string) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats, ok := s.categories[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	return append([]model.Category(nil), cats...), nil
}

// Subskills implements Provider.
func (s *Static) Subskills(ctx context.Context, categoryID string) ([]model.Subskill, error) {
	s.subskillCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs, ok := s.subskills[categoryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	return append([]model.Subskill(nil), subs...), nil
}

// SubskillCalls returns how many times Subskills was invoked.
func (s *Static) SubskillCalls() int64 {
	return s.subskillCalls.Load()
}
