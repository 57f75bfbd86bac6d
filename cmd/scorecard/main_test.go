package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const script = `
identity: {org_id: org, template_id: tpl, team_id: team, coach_id: coach}
catalog:
  categories:
    - {id: c1, name: Offense, position: 1}
  subskills:
    c1:
      - {id: s1, name: Passing, position: 1}
      - {id: s2, name: Shooting, position: 2}
roster:
  - {id: a, full_name: Ana}
steps:
  - select: [a]
  - baseline: {athlete: a, category: c1, rating: 3}
  - save: true
`

func TestRun(t *testing.T) {
	convey.Convey("Given the scorecard command", t, func() {
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		convey.Convey("When asked for help", func() {
			err := run(ctx, []string{"-help"}, nil, &stdout, &stderr)

			convey.Convey("Then usage is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "-script")
			})
		})

		convey.Convey("When no script is given", func() {
			err := run(ctx, nil, nil, &stdout, &stderr)

			convey.Convey("Then it fails with a usage error", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a script is piped into a sqlite store", func() {
			t.Setenv("SCORECARD_STORE_DRIVER", "sqlite")
			t.Setenv("SCORECARD_SQLITE_DSN", "file:"+filepath.Join(t.TempDir(), "scorecard.db"))
			err := run(ctx, []string{"-script", "-"}, strings.NewReader(script), &stdout, &stderr)

			convey.Convey("Then the save record is written", func() {
				convey.So(err, convey.ShouldBeNil)
				var rec map[string]any
				convey.So(json.Unmarshal(stdout.Bytes(), &rec), convey.ShouldBeNil)
				convey.So(rec["kind"], convey.ShouldEqual, "save")
				convey.So(rec["mode"], convey.ShouldEqual, "create")
				convey.So(rec["evaluation_id"], convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the script file is missing", func() {
			err := run(ctx, []string{"-script", filepath.Join(t.TempDir(), "nope.yaml")}, nil, &stdout, &stderr)

			convey.Convey("Then opening it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "open script")
			})
		})
	})
}
