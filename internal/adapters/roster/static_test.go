package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/scorecard/internal/adapters/roster"
	"github.com/okian/scorecard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatic(t *testing.T) {
	Convey("Given a static roster", t, func() {
		r := roster.NewStatic()
		r.AddAthletes("t1", model.Athlete{ID: "a"}, model.Athlete{ID: "b"})
		ctx := context.Background()

		Convey("Then a known team lists its athletes in order", func() {
			got, err := r.Athletes(ctx, "t1")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.Athlete{{ID: "a", TeamID: "t1"}, {ID: "b", TeamID: "t1"}})
		})

		Convey("Then an unknown team is an error", func() {
			_, err := r.Athletes(ctx, "t2")
			So(errors.Is(err, roster.ErrUnknownTeam), ShouldBeTrue)
		})
	})
}
