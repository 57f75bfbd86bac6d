package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/scorecard/internal/adapters/catalog"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/adapters/roster"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/pkg/logger"
)

// Record is one line of replay output.
type Record struct {
	Step         int    `json:"step"`
	Kind         string `json:"kind"`
	Mode         string `json:"mode,omitempty"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	Payload      any    `json:"payload,omitempty"`
	Escalated    bool   `json:"escalated,omitempty"`
	Applied      *bool  `json:"applied,omitempty"`
}

// Runner replays scripts against one store.
type Runner struct {
	store  repository.Store
	opts   []service.Option
	out    *json.Encoder
	logger logger.Logger
}

// NewRunner returns a Runner writing JSON lines to out. opts configure the
// service built for each script.
func NewRunner(store repository.Store, out io.Writer, log logger.Logger, opts ...service.Option) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{store: store, opts: opts, out: json.NewEncoder(out), logger: log}
}

// Run executes a script. It stops at the first failing step.
func (r *Runner) Run(ctx context.Context, s *Script) (err error) {
	cat := catalog.NewStatic()
	cat.AddTemplate(s.Identity.TemplateID, s.Catalog.Categories)
	for id, subs := range s.Catalog.Subskills {
		cat.AddSubskills(id, subs)
	}
	team := roster.NewStatic()
	team.AddAthletes(s.Identity.TeamID, s.Roster...)

	opts := append([]service.Option{
		service.WithStore(r.store),
		service.WithCatalog(cat),
		service.WithRoster(team),
		service.WithLogger(r.logger),
	}, r.opts...)
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := svc.Stop(context.WithoutCancel(ctx)); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	var sess *service.Session
	if s.Load != "" {
		sess, err = svc.LoadSession(ctx, s.Load)
	} else {
		sess, err = svc.NewSession(ctx, payload.Identity(s.Identity))
	}
	if err != nil {
		return err
	}
	defer sess.Close()

	for i := range s.Steps {
		if err := r.step(ctx, sess, i, &s.Steps[i]); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	r.logger.Info(ctx, "replay finished",
		logger.Int("steps", len(s.Steps)),
		logger.String("evaluationID", sess.EvaluationID()),
	)
	return nil
}

func (r *Runner) step(ctx context.Context, sess *service.Session, i int, st *Step) error {
	switch {
	case st.Select != nil:
		return sess.SelectAthletes(st.Select)
	case st.Baseline != nil:
		return sess.SetBaseline(st.Baseline.Athlete, st.Baseline.Category, st.Baseline.Rating)
	case st.Override != nil:
		c := st.Override
		return sess.SetOverride(ctx, c.Athlete, c.Category, c.Subskill, c.Rating)
	case st.Subskill != nil:
		c := st.Subskill
		return sess.RateSubskill(ctx, c.Athlete, c.Category, c.Subskill, c.Rating)
	case st.Bulk != nil:
		ok, err := sess.BulkApply(st.Bulk.Rating, st.Bulk.Categories, st.Bulk.Athletes)
		if err != nil {
			return err
		}
		return r.emit(Record{Step: i, Kind: "bulk", Applied: &ok})
	case st.Wizard != nil:
		nav := sess.Navigator()
		for range st.Wizard.Next {
			nav.NextCategory()
		}
		return nav.RateCategoryBaseline(st.Wizard.Rating)
	case st.Grid != nil:
		escalated, err := sess.Grid().RateCategory(ctx, st.Grid.Athlete, st.Grid.Category, st.Grid.Rating)
		if err != nil {
			return err
		}
		return r.emit(Record{Step: i, Kind: "grid", Escalated: escalated})
	case st.Undo:
		sess.Undo()
		return nil
	case st.Redo:
		sess.Redo()
		return nil
	case st.Notes != nil:
		sess.SetNotes(*st.Notes)
		return nil
	case st.Preview:
		return r.preview(ctx, sess, i)
	case st.Save:
		res, err := sess.Save(ctx)
		if err != nil {
			return err
		}
		return r.emit(Record{Step: i, Kind: "save", Mode: res.Mode, EvaluationID: res.EvaluationID})
	}
	return nil
}

func (r *Runner) preview(ctx context.Context, sess *service.Session, i int) error {
	rec := Record{Step: i, Kind: "preview", Mode: sess.Mode(), EvaluationID: sess.EvaluationID()}
	var err error
	if sess.Mode() == service.ModeCreate {
		rec.Payload, err = sess.BuildCreate(ctx)
	} else {
		rec.Payload, err = sess.BuildUpdate(ctx)
	}
	if err != nil {
		return err
	}
	return r.emit(rec)
}

func (r *Runner) emit(rec Record) error {
	if err := r.out.Encode(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
