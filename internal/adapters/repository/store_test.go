package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func openStores(t *testing.T) map[string]repository.Store {
	t.Helper()
	sqlite, err := repository.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]repository.Store{
		"memory": repository.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func createRequest() payload.CreateRequest {
	team := "team-1"
	return payload.CreateRequest{Evaluations: []payload.Evaluation{{
		OrgID:               "org",
		ScorecardTemplateID: "tpl",
		TeamID:              &team,
		CoachID:             "coach",
		Items: []payload.Item{
			{AthleteID: "a1", SkillID: "s1", Rating: 4},
			{AthleteID: "a1", SkillID: "s2", Rating: 3},
			{AthleteID: "a2", SkillID: "s1", Rating: 5},
		},
	}}}
}

func update(ops ...payload.Operation) payload.UpdateRequest {
	notes := "second pass"
	return payload.UpdateRequest{
		OrgID:      "org",
		TemplateID: "tpl",
		CoachID:    "coach",
		Notes:      &notes,
		Operations: ops,
	}
}

func ratings(ev model.Evaluation) map[string]float64 {
	out := make(map[string]float64, len(ev.Items))
	for _, it := range ev.Items {
		out[it.AthleteID+"/"+it.SubskillID] = *it.Rating
	}
	return out
}

func TestStores(t *testing.T) {
	for name, store := range openStores(t) {
		ctx := context.Background()

		Convey("Given the "+name+" store with a created evaluation", t, func() {
			ids, err := store.Create(ctx, createRequest())
			So(err, ShouldBeNil)
			So(ids, ShouldHaveLength, 1)
			id := ids[0]

			Convey("Then loading returns the header and sorted items", func() {
				ev, err := store.Load(ctx, id)
				So(err, ShouldBeNil)
				So(ev.ID, ShouldEqual, id)
				So(ev.TeamID, ShouldEqual, "team-1")
				So(ev.Notes, ShouldEqual, "")
				So(ratings(ev), ShouldResemble, map[string]float64{"a1/s1": 4, "a1/s2": 3, "a2/s1": 5})
				So(ev.Items[0].AthleteID, ShouldEqual, "a1")
				So(ev.Athletes, ShouldHaveLength, 2)
			})

			Convey("When operations are applied", func() {
				err := store.Apply(ctx, id, update(
					payload.Operation{Type: payload.OpRemoveAthlete, AthleteID: "a2"},
					payload.Operation{Type: payload.OpUpsertRating, AthleteID: "a1", SubskillID: "s1", Rating: rating.Of(2)},
					payload.Operation{Type: payload.OpUpsertRating, AthleteID: "a1", SubskillID: "s2"},
					payload.Operation{Type: payload.OpUpsertRating, AthleteID: "a3", SubskillID: "s9", Rating: rating.Of(1)},
				))
				So(err, ShouldBeNil)

				Convey("Then upserts write, null ratings delete and removed athletes vanish", func() {
					ev, err := store.Load(ctx, id)
					So(err, ShouldBeNil)
					So(ratings(ev), ShouldResemble, map[string]float64{"a1/s1": 2, "a3/s9": 1})
					So(ev.Notes, ShouldEqual, "second pass")
					So(ev.TeamID, ShouldEqual, "")
				})
			})

			Convey("When an operation carries a non-finite rating", func() {
				err := store.Apply(ctx, id, update(
					payload.Operation{Type: payload.OpRemoveAthlete, AthleteID: "a1"},
					payload.Operation{Type: payload.OpUpsertRating, AthleteID: "a2", SubskillID: "s1", Rating: rating.Of(math.NaN())},
				))

				Convey("Then the whole update is rejected", func() {
					So(errors.Is(err, repository.ErrInvalidPayload), ShouldBeTrue)
					ev, _ := store.Load(ctx, id)
					So(ev.Items, ShouldHaveLength, 3)
				})
			})

			Convey("When an operation has an unknown type", func() {
				err := store.Apply(ctx, id, update(payload.Operation{Type: "rename", AthleteID: "a1"}))
				So(errors.Is(err, repository.ErrInvalidPayload), ShouldBeTrue)
			})
		})

		Convey("Given the "+name+" store", t, func() {
			Convey("Then unknown evaluations are not found", func() {
				_, err := store.Load(ctx, "missing")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				err = store.Apply(ctx, "missing", update())
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then incomplete create payloads are rejected", func() {
				_, err := store.Create(ctx, payload.CreateRequest{})
				So(errors.Is(err, repository.ErrInvalidPayload), ShouldBeTrue)
				req := createRequest()
				req.Evaluations[0].CoachID = ""
				_, err = store.Create(ctx, req)
				So(errors.Is(err, repository.ErrInvalidPayload), ShouldBeTrue)
			})
		})
	}
}

func TestNew(t *testing.T) {
	Convey("Given store drivers", t, func() {
		ctx := context.Background()

		s, err := repository.New(ctx, repository.DriverMemory, "")
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &repository.MemoryStore{})

		s, err = repository.New(ctx, repository.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		_, err = repository.New(ctx, "postgres", "")
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
	})
}
