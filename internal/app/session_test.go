package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/scorecard/internal/adapters/repository"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func startService(t *testing.T, store repository.Store, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{
		service.WithCatalog(newCatalog()),
		service.WithRoster(newRoster()),
		service.WithStore(store),
		service.WithDispatchWorkers(2),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

func TestSession_Ratings(t *testing.T) {
	svc := startService(t, repository.NewMemoryStore(), service.WithUndoDepth(2))

	Convey("Given a session with athletes a and b selected", t, func() {
		ctx := context.Background()
		sess, err := svc.NewSession(ctx, identity)
		So(err, ShouldBeNil)
		defer sess.Close()
		So(sess.SelectAthletes([]string{"a", "b", "a", ""}), ShouldBeNil)
		So(sess.SelectedAthletes(), ShouldResemble, []string{"a", "b"})

		Convey("Then categories follow template position", func() {
			cats := sess.Categories()
			So(cats[0].ID, ShouldEqual, "c1")
			So(cats[1].ID, ShouldEqual, "c2")
		})

		Convey("a new baseline rolls out over overrides", func() {
			So(sess.SetBaseline("a", "c1", ptr(4)), ShouldBeNil)
			So(sess.SetOverride(ctx, "a", "c1", "s1", ptr(2)), ShouldBeNil)
			So(sess.SetBaseline("a", "c1", ptr(5)), ShouldBeNil)

			So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 5)
			So(sess.Matrix().HasOverrides("a", "c1"), ShouldBeFalse)
		})

		Convey("When an override is set through the alternate subskill id", func() {
			So(sess.SetBaseline("a", "c1", ptr(4)), ShouldBeNil)
			So(sess.SetOverride(ctx, "a", "c1", "k1", ptr(2)), ShouldBeNil)

			Convey("Then it is stored under the canonical id", func() {
				v, ok := sess.Matrix().Override("a", "c1", "s1")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
				So(*sess.EffectiveRating("a", "c1", "k1"), ShouldEqual, 2)
				So(*sess.EffectiveRating("a", "c1", "s2"), ShouldEqual, 4)
			})
		})

		Convey("When subskills are rated directly", func() {
			So(sess.RateSubskill(ctx, "a", "c1", "s1", ptr(2)), ShouldBeNil)
			So(sess.RateSubskill(ctx, "a", "c1", "s2", ptr(5)), ShouldBeNil)

			Convey("Then the category score is their mean", func() {
				v, _ := sess.Baseline("a", "c1")
				So(*v, ShouldEqual, 3.5)
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 2)
			})
		})

		Convey("When ratings are out of range", func() {
			err := sess.SetBaseline("a", "c1", ptr(6))
			So(errors.Is(err, rating.ErrOutOfRange), ShouldBeTrue)

			Convey("Then a wider subskill scale still accepts its own range", func() {
				So(sess.SetOverride(ctx, "a", "c2", "s3", ptr(9)), ShouldBeNil)
				err := sess.SetOverride(ctx, "a", "c2", "k4", ptr(9))
				So(errors.Is(err, rating.ErrOutOfRange), ShouldBeTrue)
				So(sess.SetBaseline("b", "c2", ptr(8)), ShouldBeNil)
			})

			Convey("And non-finite values are refused without touching the matrix", func() {
				err := sess.SetBaseline("a", "c1", rating.Of(math.NaN()))
				So(errors.Is(err, rating.ErrNotFinite), ShouldBeTrue)
				So(sess.Matrix().Empty(), ShouldBeTrue)
			})
		})

		Convey("When the cell is invalid", func() {
			So(errors.Is(sess.SetBaseline("c", "c1", ptr(3)), service.ErrAthleteNotSelected), ShouldBeTrue)
			So(errors.Is(sess.SetBaseline("a", "zz", ptr(3)), model.ErrUnknownCategory), ShouldBeTrue)
			err := sess.SetOverride(ctx, "a", "c1", "s3", ptr(3))
			So(errors.Is(err, service.ErrCategoryMismatch), ShouldBeTrue)
			So(errors.Is(sess.RateSubskill(ctx, "a", "c1", "k4", ptr(3)), service.ErrCategoryMismatch), ShouldBeTrue)
			So(errors.Is(sess.SetOverride(ctx, "a", "c1", "nope", ptr(3)), model.ErrUnknownSubskill), ShouldBeTrue)
		})

		Convey("bulk apply covers the cross product", func() {
			ok, err := sess.BulkApply(ptr(5), []string{"c1", "c2"}, []string{"a", "b"})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(*sess.EffectiveRating("a", "c1", "s2"), ShouldEqual, 5)
			So(*sess.EffectiveRating("b", "c2", "k4"), ShouldEqual, 5)

			Convey("And an unset value or empty list is refused", func() {
				ok, err := sess.BulkApply(nil, []string{"c1"}, []string{"a"})
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				ok, _ = sess.BulkApply(ptr(3), nil, []string{"a"})
				So(ok, ShouldBeFalse)
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 5)
			})
		})

		Convey("When edits are undone and redone", func() {
			So(sess.SetBaseline("a", "c1", ptr(1)), ShouldBeNil)
			So(sess.SetBaseline("a", "c1", ptr(2)), ShouldBeNil)
			So(sess.SetBaseline("a", "c1", ptr(3)), ShouldBeNil)

			Convey("Then history is bounded by the undo depth", func() {
				So(sess.Undo(), ShouldBeTrue)
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 2)
				So(sess.Undo(), ShouldBeTrue)
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 1)
				So(sess.Undo(), ShouldBeFalse)

				So(sess.Redo(), ShouldBeTrue)
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 2)
			})

			Convey("And a new edit drops the redo branch", func() {
				So(sess.Undo(), ShouldBeTrue)
				So(sess.SetBaseline("a", "c1", ptr(5)), ShouldBeNil)
				So(sess.Redo(), ShouldBeFalse)
			})
		})

		Convey("When an athlete leaves the selection", func() {
			So(sess.SetBaseline("a", "c1", ptr(4)), ShouldBeNil)
			So(sess.SetBaseline("b", "c1", ptr(3)), ShouldBeNil)
			So(sess.SelectAthletes([]string{"b"}), ShouldBeNil)

			Convey("Then its ratings are dropped", func() {
				So(sess.EffectiveRating("a", "c1", "s1"), ShouldBeNil)
				So(*sess.EffectiveRating("b", "c1", "s1"), ShouldEqual, 3)
			})

			Convey("And undo restores the athlete with its ratings", func() {
				So(sess.Undo(), ShouldBeTrue)
				So(sess.SelectedAthletes(), ShouldResemble, []string{"a", "b"})
				So(*sess.EffectiveRating("a", "c1", "s1"), ShouldEqual, 4)

				So(sess.Redo(), ShouldBeTrue)
				So(sess.SelectedAthletes(), ShouldResemble, []string{"b"})
				So(sess.Matrix().Athletes(), ShouldResemble, []string{"b"})
			})

			Convey("And undoing an earlier edit never leaves unselected ratings behind", func() {
				So(sess.SetBaseline("b", "c2", ptr(2)), ShouldBeNil)
				So(sess.Undo(), ShouldBeTrue)
				So(sess.Matrix().Athletes(), ShouldResemble, []string{"b"})

				So(sess.SelectAthletes([]string{"a", "b"}), ShouldBeNil)
				So(sess.EffectiveRating("a", "c1", "s1"), ShouldBeNil)
			})
		})
	})
}

func TestSession_Wizard(t *testing.T) {
	svc := startService(t, repository.NewMemoryStore())

	Convey("Given a session driven by the wizard", t, func() {
		ctx := context.Background()
		sess, err := svc.NewSession(ctx, identity)
		So(err, ShouldBeNil)
		defer sess.Close()
		So(sess.SelectAthletes([]string{"a", "b", "c"}), ShouldBeNil)
		nav := sess.Navigator()

		Convey("rating advances the athlete and keeps the category", func() {
			nav.NextCategory()
			So(nav.RateCategoryBaseline(ptr(4)), ShouldBeNil)

			st := nav.State()
			So(st.AthleteID, ShouldEqual, "b")
			So(st.CategoryID, ShouldEqual, "c2")
			So(*sess.EffectiveRating("a", "c2", "s3"), ShouldEqual, 4)
		})

		Convey("a low grid rating opens the subskill dialog", func() {
			escalated, err := sess.Grid().RateCategory(ctx, "b", "c1", ptr(2))
			So(err, ShouldBeNil)
			So(escalated, ShouldBeTrue)

			a, c, open := sess.Dialog().Target()
			So(open, ShouldBeTrue)
			So(a, ShouldEqual, "b")
			So(c, ShouldEqual, "c1")
			So(sess.Dialog().Subskills(), ShouldHaveLength, 2)

			escalated, err = sess.Grid().RateCategory(ctx, "c", "c1", ptr(3))
			So(err, ShouldBeNil)
			So(escalated, ShouldBeFalse)
		})

		Convey("When the session closes", func() {
			sess.Close()

			Convey("Then edits and dialog opens are refused", func() {
				So(errors.Is(sess.SetBaseline("a", "c1", ptr(3)), service.ErrSessionClosed), ShouldBeTrue)
				_, err := sess.Grid().RateCategory(ctx, "a", "c1", ptr(1))
				So(errors.Is(err, service.ErrSessionClosed), ShouldBeTrue)
			})
		})
	})
}

func TestSession_Preconditions(t *testing.T) {
	svc := startService(t, repository.NewMemoryStore())

	Convey("Given sessions missing save prerequisites", t, func() {
		ctx := context.Background()

		Convey("Then no template is refused", func() {
			sess, err := svc.NewSession(ctx, payload.Identity{OrgID: "org", CoachID: "coach"})
			So(err, ShouldBeNil)
			_, err = sess.Save(ctx)
			So(errors.Is(err, service.ErrPreconditionMissing), ShouldBeTrue)
			So(errors.Is(err, service.ErrNoTemplate), ShouldBeTrue)
		})

		Convey("Then no athletes is refused", func() {
			sess, _ := svc.NewSession(ctx, identity)
			_, err := sess.Save(ctx)
			So(errors.Is(err, service.ErrPreconditionMissing), ShouldBeTrue)
		})

		Convey("Then a missing coach is refused", func() {
			id := identity
			id.CoachID = ""
			sess, _ := svc.NewSession(ctx, id)
			_ = sess.SelectAthletes([]string{"a"})
			_, err := sess.BuildCreate(ctx)
			So(errors.Is(err, service.ErrPreconditionMissing), ShouldBeTrue)
			So(errors.Is(err, payload.ErrMissingCoach), ShouldBeTrue)
		})

		Convey("Then an untouched matrix is an empty result", func() {
			sess, _ := svc.NewSession(ctx, identity)
			_ = sess.SelectAthletes([]string{"a"})
			_, err := sess.Save(ctx)
			So(errors.Is(err, payload.ErrEmptyResult), ShouldBeTrue)
			So(errors.Is(err, service.ErrPreconditionMissing), ShouldBeFalse)
		})
	})
}

func TestSession_SaveRoundTrip(t *testing.T) {
	sqlite, err := repository.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	store := &flakyStore{Store: sqlite}
	svc := startService(t, store)

	Convey("Given a new evaluation with ratings", t, func() {
		ctx := context.Background()
		sess, err := svc.NewSession(ctx, identity)
		So(err, ShouldBeNil)
		So(sess.SelectAthletes([]string{"a", "b"}), ShouldBeNil)
		So(sess.SetBaseline("a", "c1", ptr(4)), ShouldBeNil)
		So(sess.SetOverride(ctx, "a", "c1", "s2", ptr(2)), ShouldBeNil)
		So(sess.SetBaseline("b", "c2", ptr(3)), ShouldBeNil)

		Convey("When the store is down", func() {
			store.failing.Store(true)
			defer store.failing.Store(false)
			before := sess.Matrix()
			_, err := sess.Save(ctx)

			Convey("Then the error is upstream and the session is unchanged", func() {
				So(errors.Is(err, service.ErrUpstream), ShouldBeTrue)
				So(errors.Is(err, errStoreDown), ShouldBeTrue)
				So(sess.Mode(), ShouldEqual, service.ModeCreate)
				So(sess.Matrix(), ShouldResemble, before)
			})
		})

		Convey("When it is saved", func() {
			res, err := sess.Save(ctx)
			So(err, ShouldBeNil)
			So(res.Mode, ShouldEqual, service.ModeCreate)
			So(res.Entries, ShouldEqual, 4)
			So(sess.Mode(), ShouldEqual, service.ModeUpdate)

			Convey("Then a loaded session sees the same ratings", func() {
				loaded, err := svc.LoadSession(ctx, res.EvaluationID)
				So(err, ShouldBeNil)
				So(loaded.Mode(), ShouldEqual, service.ModeUpdate)
				So(loaded.SelectedAthletes(), ShouldResemble, []string{"a", "b"})
				So(*loaded.EffectiveRating("a", "c1", "s1"), ShouldEqual, 4)
				So(*loaded.EffectiveRating("a", "c1", "s2"), ShouldEqual, 2)
				So(*loaded.EffectiveRating("b", "c2", "k4"), ShouldEqual, 3)

				Convey("dropping an athlete emits one remove and no upserts for it", func() {
					So(loaded.SelectAthletes([]string{"b"}), ShouldBeNil)
					req, err := loaded.BuildUpdate(ctx)
					So(err, ShouldBeNil)
					So(req.Operations[0], ShouldResemble, payload.Operation{Type: payload.OpRemoveAthlete, AthleteID: "a"})
					for _, op := range req.Operations[1:] {
						So(op.AthleteID, ShouldEqual, "b")
					}
				})

				Convey("And clearing a rating deletes it on save", func() {
					So(loaded.SetBaseline("b", "c2", nil), ShouldBeNil)
					upd, err := loaded.Save(ctx)
					So(err, ShouldBeNil)
					So(upd.Mode, ShouldEqual, service.ModeUpdate)

					again, err := svc.LoadSession(ctx, res.EvaluationID)
					So(err, ShouldBeNil)
					So(again.EffectiveRating("b", "c2", "s3"), ShouldBeNil)
					So(*again.EffectiveRating("a", "c1", "s2"), ShouldEqual, 2)
					So(again.SelectedAthletes(), ShouldResemble, []string{"a"})
				})
			})

			Convey("Then a follow-up save sends a diff against the saved state", func() {
				So(sess.SetOverride(ctx, "a", "c1", "s1", ptr(1)), ShouldBeNil)
				req, err := sess.BuildUpdate(ctx)
				So(err, ShouldBeNil)
				So(req.Operations, ShouldNotBeEmpty)
				for _, op := range req.Operations {
					So(op.Type, ShouldEqual, payload.OpUpsertRating)
				}
			})
		})
	})
}

func TestSession_LoadUnknown(t *testing.T) {
	svc := startService(t, repository.NewMemoryStore())

	Convey("Given an unknown evaluation id", t, func() {
		_, err := svc.LoadSession(context.Background(), "missing")
		So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
	})
}
