// Package service wires the rating engine to its collaborators and hosts
// editing sessions.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scorecard/internal/adapters/catalog"
	"github.com/okian/scorecard/internal/adapters/mq/queue"
	"github.com/okian/scorecard/internal/adapters/mq/worker"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/adapters/roster"
	"github.com/okian/scorecard/internal/config"
	"github.com/okian/scorecard/internal/domain/matrix"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize    = 1024
	defaultUndoDepth    = 100
	defaultSaveTimeout  = 10 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Service owns the collaborators shared by all sessions: the store, the
// catalog cache, the roster and the save dispatcher.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store    repository.Store
	provider catalog.Provider
	catalog  *catalog.Cache
	roster   roster.Provider
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	saveTimeout  time.Duration
	fetchTimeout time.Duration
	undoDepth    int
	scale        rating.Scale

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence collaborator.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the scorecard catalog collaborator. Subskill lookups go
// through a cache in front of it.
func WithCatalog(p catalog.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithRoster sets the roster collaborator.
func WithRoster(r roster.Provider) Option {
	return func(s *Service) {
		if r != nil {
			s.roster = r
		}
	}
}

// WithDispatchWorkers sets the number of save dispatcher workers.
func WithDispatchWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the pending save submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSaveTimeout bounds each store call.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// WithCatalogFetchTimeout bounds each subskill catalog request.
func WithCatalogFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithUndoDepth caps the undo history of each session. Zero disables undo.
func WithUndoDepth(depth int) Option {
	return func(s *Service) {
		if depth >= 0 {
			s.undoDepth = depth
		}
	}
}

// WithScale sets the rating scale used for subskills that declare none.
func WithScale(minRating, maxRating int) Option {
	return func(s *Service) {
		if sc := (rating.Scale{Min: minRating, Max: maxRating}); sc.Known() {
			s.scale = sc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// FromConfig translates the process configuration into options. The store
// is opened separately since it owns resources.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithDispatchWorkers(cfg.DispatchWorkers),
		WithQueueSize(cfg.DispatchQueueSize),
		WithSaveTimeout(cfg.SaveTimeout()),
		WithCatalogFetchTimeout(cfg.CatalogFetchTimeout()),
		WithUndoDepth(cfg.UndoDepth),
		WithScale(cfg.RatingMin, cfg.RatingMax),
	}
}

// New constructs a Service. Collaborators default to in-memory ones.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		saveTimeout:  defaultSaveTimeout,
		fetchTimeout: defaultFetchTimeout,
		undoDepth:    defaultUndoDepth,
		scale:        rating.DefaultScale,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.provider == nil {
		s.provider = catalog.NewStatic()
	}
	if s.roster == nil {
		s.roster = roster.NewStatic()
	}
	s.catalog = catalog.NewCache(s.provider,
		catalog.WithFetchTimeout(s.fetchTimeout),
		catalog.WithLogger(s.logger.Named("catalog")),
	)
	return s
}

// Start starts the save dispatcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithTimeout(s.saveTimeout),
		worker.WithLogger(s.logger),
	)
	s.pool.Start(runCtx)
	s.cancel = cancel
	s.started = true

	s.logger.Info(ctx, "scorecard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("undoDepth", s.undoDepth),
	)
	return nil
}

// Stop drains pending saves and stops the dispatcher. The store stays open;
// its owner closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "scorecard service stopped")
	return err
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"cachedCatalogs": s.catalog.Len(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["processed"] = s.pool.Processed()
	}
	return stats
}

// Roster returns the athletes of a team.
func (s *Service) Roster(ctx context.Context, teamID string) ([]model.Athlete, error) {
	athletes, err := s.roster.Athletes(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load roster of %s: %w", teamID, err)
	}
	return athletes, nil
}

// NewSession opens a session for a new evaluation. When id names a template
// its categories are loaded right away.
func (s *Service) NewSession(ctx context.Context, id payload.Identity) (*Session, error) {
	sess := s.newSession(id)
	if id.TemplateID != "" {
		if err := sess.SelectTemplate(ctx, id.TemplateID); err != nil {
			return nil, err
		}
	}
	metrics.SessionOpened()
	sess.logger.Info(ctx, "session opened", logger.String("mode", sess.Mode()))
	return sess, nil
}

// LoadSession opens a session over a saved evaluation. The matrix and the
// original snapshot are hydrated from its items; saves produce diff
// operations against that snapshot.
func (s *Service) LoadSession(ctx context.Context, evaluationID string) (*Session, error) {
	ev, err := s.store.Load(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("load evaluation %s: %w", evaluationID, err)
	}

	sess := s.newSession(payload.Identity{
		OrgID:      ev.OrgID,
		TemplateID: ev.TemplateID,
		TeamID:     ev.TeamID,
		CoachID:    ev.CoachID,
		Notes:      ev.Notes,
	})
	if err := sess.SelectTemplate(ctx, ev.TemplateID); err != nil {
		return nil, err
	}
	if err := sess.LoadAllSubskills(ctx); err != nil {
		return nil, err
	}

	h := matrix.Hydrate(sess.catalog, ev.Items)
	athletes := make([]string, 0, len(ev.Athletes))
	for _, a := range ev.Athletes {
		athletes = append(athletes, a.ID)
	}
	sess.evaluationID = ev.ID
	sess.matrix = h.Matrix
	sess.snapshot = h.Snapshot
	sess.original = athletes
	sess.setSelection(dedupe(athletes))

	if h.Skipped > 0 {
		metrics.RecordHydrateSkipped(h.Skipped)
		sess.logger.Warn(ctx, "skipped items with unknown subskills", logger.Int("skipped", h.Skipped))
	}
	metrics.SessionOpened()
	sess.logger.Info(ctx, "session loaded",
		logger.String("evaluationID", ev.ID),
		logger.Int("items", len(ev.Items)),
		logger.Int("athletes", len(athletes)),
	)
	return sess, nil
}

func (s *Service) newSession(id payload.Identity) *Session {
	sessionID := uuid.NewString()
	sess := &Session{
		id:       sessionID,
		svc:      s,
		identity: id,
		matrix:   matrix.New(),
		history:  newHistory(s.undoDepth),
		logger:   s.logger.Named("session").With(logger.String("sessionID", sessionID)),
	}
	sess.wire()
	return sess
}

// submit hands a payload to the dispatcher and waits for its outcome.
func (s *Service) submit(ctx context.Context, sub queue.Submission) (queue.Result, error) { //nolint:gocritic // hugeParam: Submission is passed by value for channel semantics
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return queue.Result{}, ErrNotStarted
	}

	reply := make(chan queue.Result, 1)
	sub.Reply = reply
	if err := q.Enqueue(ctx, sub); err != nil {
		return queue.Result{}, fmt.Errorf("enqueue save: %w", err)
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return queue.Result{}, fmt.Errorf("await save: %w", ctx.Err())
	}
}
