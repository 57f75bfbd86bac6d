package service_test

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/okian/scorecard/internal/adapters/catalog"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/adapters/roster"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
)

var identity = payload.Identity{
	OrgID:      "org",
	TemplateID: "tpl",
	TeamID:     "team",
	CoachID:    "coach",
}

func newCatalog() *catalog.Static {
	c := catalog.NewStatic()
	c.AddTemplate("tpl", []model.Category{
		{ID: "c2", Name: "Defense", Position: 2},
		{ID: "c1", Name: "Offense", Position: 1},
	})
	c.AddSubskills("c1", []model.Subskill{
		{ID: "s1", SkillID: "k1", Name: "Passing", Position: 1},
		{ID: "s2", Name: "Shooting", Position: 2},
	})
	c.AddSubskills("c2", []model.Subskill{
		{ID: "s3", Name: "Tackling", Position: 1, RatingMin: 1, RatingMax: 10},
		{SkillID: "k4", Name: "Marking", Position: 2},
	})
	return c
}

func newRoster() *roster.Static {
	r := roster.NewStatic()
	r.AddAthletes("team",
		model.Athlete{ID: "a", FullName: "Ana"},
		model.Athlete{ID: "b", FullName: "Ben"},
		model.Athlete{ID: "c", FullName: "Cai"},
	)
	return r
}

// flakyStore fails every write while failing is set.
type flakyStore struct {
	repository.Store
	failing atomic.Bool
	writes  atomic.Int64
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) Create(ctx context.Context, req payload.CreateRequest) ([]string, error) {
	f.writes.Add(1)
	if f.failing.Load() {
		return nil, errStoreDown
	}
	return f.Store.Create(ctx, req)
}

func (f *flakyStore) Apply(ctx context.Context, id string, req payload.UpdateRequest) error {
	f.writes.Add(1)
	if f.failing.Load() {
		return errStoreDown
	}
	return f.Store.Apply(ctx, id, req)
}
