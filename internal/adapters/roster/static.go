// Package roster provides the roster collaborator: the athletes of a team.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/scorecard/internal/domain/model"
)

// ErrUnknownTeam is returned for teams the provider does not know.
var ErrUnknownTeam = errors.New("unknown team")

// Provider returns the athletes of a team.
type Provider interface {
	Athletes(ctx context.Context, teamID string) ([]model.Athlete, error)
}

// Static is an in-memory Provider.
type Static struct {
	mu    sync.RWMutex
	teams map[string][]model.Athlete
}

// NewStatic returns an empty Static provider.
func NewStatic() *Static {
	return &Static{teams: make(map[string][]model.Athlete)}
}

// AddAthletes appends athletes to a team, stamping their TeamID.
func (s *Static) AddAthletes(teamID string, athletes ...model.Athlete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range athletes {
		a.TeamID = teamID
		s.teams[teamID] = append(s.teams[teamID], a)
	}
}

// Athletes implements Provider.
func (s *Static) Athletes(ctx context.Context, teamID string) ([]model.Athlete, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	athletes, ok := s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
	}
	return append([]model.Athlete(nil), athletes...), nil
}
