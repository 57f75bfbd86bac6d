package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scorecard/internal/adapters/mq/queue"
	"github.com/okian/scorecard/internal/domain/matrix"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	"github.com/okian/scorecard/internal/domain/wizard"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Save modes.
const (
	ModeCreate = "create"
	ModeUpdate = "update"
)

const subskillFetchConcurrency = 4

// SaveResult describes a successful save.
type SaveResult struct {
	Mode         string
	EvaluationID string
	// Entries is the number of items (create) or operations (update) sent.
	Entries int
}

// Session is one editing session over one evaluation. It owns its matrix
// exclusively and is not safe for concurrent use.
type Session struct {
	id       string
	svc      *Service
	logger   logger.Logger
	identity payload.Identity
	catalog  *model.Catalog

	matrix   matrix.Matrix
	history  *history
	snapshot matrix.Snapshot
	original []string
	selected []string
	// evaluationID is set once the evaluation exists; saves then diff.
	evaluationID string

	navigator *wizard.Navigator
	grid      *wizard.Grid
	dialog    *wizard.Dialog

	closed bool
}

func (s *Session) wire() {
	s.dialog = wizard.NewDialog(s)
	s.navigator = wizard.NewNavigator(s, s)
	s.grid = wizard.NewGrid(s, s.dialog)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Identity returns the evaluation header.
func (s *Session) Identity() payload.Identity { return s.identity }

// SetNotes replaces the evaluation notes.
func (s *Session) SetNotes(notes string) { s.identity.Notes = notes }

// Mode reports whether the next save creates or updates the evaluation.
func (s *Session) Mode() string {
	if s.evaluationID == "" {
		return ModeCreate
	}
	return ModeUpdate
}

// EvaluationID returns the id of the persisted evaluation, if any.
func (s *Session) EvaluationID() string { return s.evaluationID }

// Matrix returns the current rating matrix. It is immutable.
func (s *Session) Matrix() matrix.Matrix { return s.matrix }

// Navigator returns the single-pane wizard bound to this session.
func (s *Session) Navigator() *wizard.Navigator { return s.navigator }

// Grid returns the grid entry path bound to this session.
func (s *Session) Grid() *wizard.Grid { return s.grid }

// Dialog returns the subskill dialog bound to this session.
func (s *Session) Dialog() *wizard.Dialog { return s.dialog }

// Roster returns the athletes of the session's team.
func (s *Session) Roster(ctx context.Context) ([]model.Athlete, error) {
	return s.svc.Roster(ctx, s.identity.TeamID)
}

// Categories returns the template's categories in order.
func (s *Session) Categories() []model.Category {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Categories()
}

// SelectTemplate loads the categories of a scorecard template. Switching
// templates on a new evaluation discards the ratings entered so far; a saved
// evaluation keeps its template.
func (s *Session) SelectTemplate(ctx context.Context, templateID string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.evaluationID != "" && templateID != s.identity.TemplateID {
		return fmt.Errorf("%w: evaluation %s uses template %s", ErrTemplateLocked, s.evaluationID, s.identity.TemplateID)
	}
	cats, err := s.svc.catalog.Categories(ctx, templateID)
	if err != nil {
		return err
	}
	cat := model.NewCatalog(cats)
	cat.SetFallbackScale(s.svc.scale)

	if s.catalog != nil && s.identity.TemplateID != templateID {
		s.matrix = matrix.New()
		s.history.reset()
	}
	s.identity.TemplateID = templateID
	s.catalog = cat
	s.navigator.SetSelection(s.selected, cat.CategoryIDs())
	s.logger.Debug(ctx, "template selected",
		logger.String("templateID", templateID),
		logger.Int("categories", len(cats)),
	)
	return nil
}

// Subskills returns a category's subskills, fetching them through the
// shared catalog cache on first use.
func (s *Session) Subskills(ctx context.Context, categoryID string) ([]model.Subskill, error) {
	cat := s.catalog
	if cat == nil {
		return nil, ErrNoTemplate
	}
	if !cat.HasCategory(categoryID) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownCategory, categoryID)
	}
	if cat.Loaded(categoryID) {
		return cat.Subskills(categoryID), nil
	}
	subs, err := s.svc.catalog.Subskills(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := cat.AddSubskills(categoryID, subs); err != nil {
		return nil, err
	}
	return cat.Subskills(categoryID), nil
}

// LoadAllSubskills fetches the subskills of every category.
func (s *Session) LoadAllSubskills(ctx context.Context) error {
	if s.catalog == nil {
		return ErrNoTemplate
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subskillFetchConcurrency)
	for _, id := range s.catalog.CategoryIDs() {
		g.Go(func() error {
			_, err := s.Subskills(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// SelectAthletes replaces the ordered athlete selection. Athletes dropped
// from the selection lose their ratings. The change is undoable together
// with the ratings it dropped.
func (s *Session) SelectAthletes(ids []string) error {
	if s.closed {
		return ErrSessionClosed
	}
	ids = dedupe(ids)
	if slices.Equal(ids, s.selected) {
		return nil
	}
	next := s.matrix
	for _, a := range s.selected {
		if !slices.Contains(ids, a) {
			next = next.WithoutAthlete(a)
		}
	}
	s.history.record(s.current())
	s.matrix = next
	s.setSelection(ids)
	return nil
}

// SelectedAthletes returns the current selection in order.
func (s *Session) SelectedAthletes() []string { return slices.Clone(s.selected) }

// OriginalAthletes returns the athletes of the persisted evaluation.
func (s *Session) OriginalAthletes() []string { return slices.Clone(s.original) }

func (s *Session) setSelection(ids []string) {
	s.selected = ids
	var cats []string
	if s.catalog != nil {
		cats = s.catalog.CategoryIDs()
	}
	s.navigator.SetSelection(ids, cats)
}

// SetBaseline rates a whole category for an athlete, clearing its
// subskill overrides. A nil rating clears the category.
func (s *Session) SetBaseline(athleteID, categoryID string, v rating.Value) error {
	if err := s.checkCell(athleteID, categoryID); err != nil {
		return err
	}
	if err := s.validate(s.catalog.CategoryScale(categoryID), v); err != nil {
		return fmt.Errorf("baseline %s/%s: %w", athleteID, categoryID, err)
	}
	s.commit(matrix.SetBaseline(s.matrix, athleteID, categoryID, v))
	metrics.RecordRating("baseline")
	return nil
}

// SetOverride rates one subskill against the category baseline. A rating
// equal to the baseline, or nil, removes the override.
func (s *Session) SetOverride(ctx context.Context, athleteID, categoryID, subskillID string, v rating.Value) error {
	key, err := s.resolveSubskill(ctx, athleteID, categoryID, subskillID, v)
	if err != nil {
		return err
	}
	s.commit(matrix.SetOverride(s.matrix, athleteID, categoryID, key, v))
	metrics.RecordRating("override")
	return nil
}

// RateSubskill records a direct subskill rating and recomputes the category
// score as the mean of its rated subskills.
func (s *Session) RateSubskill(ctx context.Context, athleteID, categoryID, subskillID string, v rating.Value) error {
	key, err := s.resolveSubskill(ctx, athleteID, categoryID, subskillID, v)
	if err != nil {
		return err
	}
	next := matrix.RecordSubskillRating(s.matrix, athleteID, categoryID, key, v)
	next = matrix.RecomputeCategoryScore(next, athleteID, categoryID, s.catalog.Subskills(categoryID))
	s.commit(next)
	metrics.RecordRating("subskill")
	return nil
}

// BulkApply sets v as the baseline of every (athlete, category) pair. It
// reports false, changing nothing, when v is unset or either list is empty.
func (s *Session) BulkApply(v rating.Value, categoryIDs, athleteIDs []string) (bool, error) {
	for _, a := range athleteIDs {
		for _, c := range categoryIDs {
			if err := s.checkCell(a, c); err != nil {
				return false, err
			}
		}
	}
	for _, c := range categoryIDs {
		if err := s.validate(s.catalog.CategoryScale(c), v); err != nil {
			return false, fmt.Errorf("bulk apply to %s: %w", c, err)
		}
	}
	next, ok := matrix.BulkApply(s.matrix, v, categoryIDs, athleteIDs)
	metrics.RecordBulkApply(ok)
	if ok {
		s.commit(next)
	}
	return ok, nil
}

// EffectiveRating returns the displayed rating of a subskill: the override,
// else the category baseline, else nil. Either subskill id is accepted.
func (s *Session) EffectiveRating(athleteID, categoryID, subskillID string) rating.Value {
	if s.catalog != nil {
		if key, _, err := s.catalog.Resolve(subskillID); err == nil {
			subskillID = key
		}
	}
	return matrix.EffectiveRating(s.matrix, athleteID, categoryID, subskillID)
}

// Baseline returns the category rating of an athlete.
func (s *Session) Baseline(athleteID, categoryID string) (rating.Value, bool) {
	return s.matrix.Baseline(athleteID, categoryID)
}

// Undo restores the ratings and selection before the last edit.
func (s *Session) Undo() bool {
	prev, ok := s.history.undo(s.current())
	if ok {
		s.restore(prev)
		metrics.RecordHistoryStep("undo")
	}
	return ok
}

// Redo reapplies the last undone edit.
func (s *Session) Redo() bool {
	next, ok := s.history.redo(s.current())
	if ok {
		s.restore(next)
		metrics.RecordHistoryStep("redo")
	}
	return ok
}

// BuildCreate produces the create payload for the current matrix.
func (s *Session) BuildCreate(ctx context.Context) (payload.CreateRequest, error) {
	if err := s.checkSavable(ctx); err != nil {
		return payload.CreateRequest{}, err
	}
	items := payload.BuildItems(s.selected, s.matrix, s.catalog)
	req, err := payload.NewCreateRequest(s.identity, items)
	if err != nil {
		return payload.CreateRequest{}, s.refusal(ctx, err)
	}
	metrics.ObservePayloadSize(len(items))
	return req, nil
}

// BuildUpdate produces the update payload: the diff of the current matrix
// against the snapshot taken when the evaluation was loaded or last saved.
func (s *Session) BuildUpdate(ctx context.Context) (payload.UpdateRequest, error) {
	if err := s.checkSavable(ctx); err != nil {
		return payload.UpdateRequest{}, err
	}
	ops := payload.Diff(s.original, s.selected, s.matrix, s.snapshot, s.catalog)
	req, err := payload.NewUpdateRequest(s.identity, ops)
	if err != nil {
		return payload.UpdateRequest{}, s.refusal(ctx, err)
	}
	for _, op := range ops {
		metrics.RecordDiffOperation(string(op.Type))
	}
	metrics.ObservePayloadSize(len(ops))
	return req, nil
}

// Save persists the session through the dispatcher. On failure the session
// is left exactly as it was. After a successful create the session switches
// to update mode; after any success the snapshot is retaken so the next
// save only sends later edits.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	mode := s.Mode()
	sub := queue.Submission{SessionID: s.id, EvaluationID: s.evaluationID}
	var entries int

	switch mode {
	case ModeCreate:
		req, err := s.BuildCreate(ctx)
		if err != nil {
			metrics.RecordSave(mode, outcome(err))
			return SaveResult{}, err
		}
		sub.Create, entries = &req, len(req.Evaluations[0].Items)
	default:
		req, err := s.BuildUpdate(ctx)
		if err != nil {
			metrics.RecordSave(mode, outcome(err))
			return SaveResult{}, err
		}
		sub.Update, entries = &req, len(req.Operations)
	}

	res, err := s.svc.submit(ctx, sub)
	if err == nil && mode == ModeCreate && len(res.EvaluationIDs) == 0 {
		err = errors.New("store returned no evaluation id")
	}
	if err != nil {
		metrics.RecordSave(mode, "upstream_error")
		s.logger.Error(ctx, "save failed", logger.String("mode", mode), logger.Error(err))
		return SaveResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if mode == ModeCreate {
		s.evaluationID = res.EvaluationIDs[0]
	}
	s.original = slices.Clone(s.selected)
	s.snapshot = matrix.Capture(s.matrix, s.catalog, s.selected)
	metrics.RecordSave(mode, "ok")
	s.logger.Info(ctx, "evaluation saved",
		logger.String("mode", mode),
		logger.String("evaluationID", s.evaluationID),
		logger.Int("entries", entries),
	)
	return SaveResult{Mode: mode, EvaluationID: s.evaluationID, Entries: entries}, nil
}

// Close ends the session. In-flight subskill loads are discarded.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.dialog.Dispose()
	metrics.SessionClosed()
}

func (s *Session) commit(next matrix.Matrix) {
	s.history.record(s.current())
	s.matrix = next
}

func (s *Session) current() state {
	return state{matrix: s.matrix, selected: s.selected}
}

func (s *Session) restore(st state) {
	s.matrix = st.matrix
	if !slices.Equal(st.selected, s.selected) {
		s.setSelection(st.selected)
	}
}

func (s *Session) checkCell(athleteID, categoryID string) error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.catalog == nil:
		return ErrNoTemplate
	case !slices.Contains(s.selected, athleteID):
		return fmt.Errorf("%w: %s", ErrAthleteNotSelected, athleteID)
	case !s.catalog.HasCategory(categoryID):
		return fmt.Errorf("%w: %s", model.ErrUnknownCategory, categoryID)
	}
	return nil
}

func (s *Session) resolveSubskill(ctx context.Context, athleteID, categoryID, subskillID string, v rating.Value) (string, error) {
	if err := s.checkCell(athleteID, categoryID); err != nil {
		return "", err
	}
	if _, err := s.Subskills(ctx, categoryID); err != nil {
		return "", err
	}
	key, owner, err := s.catalog.Resolve(subskillID)
	if errors.Is(err, model.ErrUnknownSubskill) {
		// The id may belong to a category whose subskills are not loaded yet.
		if err := s.LoadAllSubskills(ctx); err != nil {
			return "", err
		}
		key, owner, err = s.catalog.Resolve(subskillID)
	}
	if err != nil {
		return "", err
	}
	if owner != categoryID {
		return "", fmt.Errorf("%w: %s is in %s", ErrCategoryMismatch, subskillID, owner)
	}
	if err := s.validate(s.catalog.SubskillScale(key), v); err != nil {
		return "", fmt.Errorf("subskill %s/%s: %w", athleteID, key, err)
	}
	return key, nil
}

func (s *Session) validate(sc rating.Scale, v rating.Value) error {
	err := sc.Validate(v)
	if errors.Is(err, rating.ErrNotFinite) {
		metrics.RecordCoercionFailure()
	}
	return err
}

func (s *Session) checkSavable(ctx context.Context) error {
	var missing error
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.catalog == nil:
		missing = ErrNoTemplate
	case len(s.catalog.CategoryIDs()) == 0:
		missing = errors.New("no categories loaded")
	case len(s.selected) == 0:
		missing = errors.New("no athletes selected")
	case s.identity.OrgID == "":
		missing = payload.ErrMissingOrg
	case s.identity.CoachID == "":
		missing = payload.ErrMissingCoach
	}
	if missing != nil {
		return fmt.Errorf("%w: %w", ErrPreconditionMissing, missing)
	}
	if err := s.LoadAllSubskills(ctx); err != nil {
		return fmt.Errorf("load subskills: %w", err)
	}
	return nil
}

func (s *Session) refusal(ctx context.Context, err error) error {
	if errors.Is(err, payload.ErrEmptyResult) {
		s.logger.Warn(ctx, "nothing to save", logger.String("mode", s.Mode()))
		return err
	}
	return fmt.Errorf("%w: %w", ErrPreconditionMissing, err)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrPreconditionMissing):
		return "precondition_missing"
	case errors.Is(err, payload.ErrEmptyResult):
		return "empty"
	default:
		return "error"
	}
}

// dedupe drops empty and repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
