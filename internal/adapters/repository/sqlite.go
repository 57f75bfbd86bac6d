package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/rating"
	"github.com/okian/scorecard/pkg/logger"
)

var schema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS evaluations (
		id          TEXT PRIMARY KEY,
		org_id      TEXT NOT NULL,
		template_id TEXT NOT NULL,
		team_id     TEXT,
		coach_id    TEXT NOT NULL,
		notes       TEXT,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation_items (
		evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
		athlete_id    TEXT NOT NULL,
		subskill_id   TEXT NOT NULL,
		rating        REAL NOT NULL,
		comments      TEXT,
		PRIMARY KEY (evaluation_id, athlete_id, subskill_id)
	)`,
}

const upsertItem = `INSERT INTO evaluation_items (evaluation_id, athlete_id, subskill_id, rating, comments)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (evaluation_id, athlete_id, subskill_id)
DO UPDATE SET rating = excluded.rating, comments = excluded.comments`

// SQLiteStore keeps evaluations in an embedded SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens dsn and creates the schema if needed. ":memory:" gives
// a private in-memory database.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	o.logger.Info(ctx, "sqlite store ready", logger.String("dsn", dsn))
	return &SQLiteStore{db: db, opts: o}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, req payload.CreateRequest) ([]string, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	now := s.opts.now().UnixMilli()

	var ids []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ids = make([]string, 0, len(req.Evaluations))
		for _, ev := range req.Evaluations {
			id := uuid.NewString()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO evaluations (id, org_id, template_id, team_id, coach_id, notes, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, ev.OrgID, ev.ScorecardTemplateID, nullString(ev.TeamID), ev.CoachID, nullString(ev.Notes), now, now,
			); err != nil {
				return fmt.Errorf("insert evaluation: %w", err)
			}
			for _, it := range ev.Items {
				if _, err := tx.ExecContext(ctx, upsertItem, id, it.AthleteID, it.SkillID, it.Rating, nullString(it.Comments)); err != nil {
					return fmt.Errorf("insert item %s/%s: %w", it.AthleteID, it.SkillID, err)
				}
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.opts.logger.Debug(ctx, "evaluations created", logger.Strings("evaluationIDs", ids))
	return ids, nil
}

// Apply implements Store.
func (s *SQLiteStore) Apply(ctx context.Context, evaluationID string, req payload.UpdateRequest) error {
	if err := validateOperations(req.Operations); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE evaluations SET org_id = ?, template_id = ?, team_id = ?, coach_id = ?, notes = ?, updated_at = ?
			WHERE id = ?`,
			req.OrgID, req.TemplateID, nullString(req.TeamID), req.CoachID, nullString(req.Notes),
			s.opts.now().UnixMilli(), evaluationID,
		)
		if err != nil {
			return fmt.Errorf("update evaluation: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update evaluation: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
		}

		for i, op := range req.Operations {
			switch {
			case op.Type == payload.OpRemoveAthlete:
				_, err = tx.ExecContext(ctx,
					`DELETE FROM evaluation_items WHERE evaluation_id = ? AND athlete_id = ?`,
					evaluationID, op.AthleteID)
			case op.Rating == nil:
				_, err = tx.ExecContext(ctx,
					`DELETE FROM evaluation_items WHERE evaluation_id = ? AND athlete_id = ? AND subskill_id = ?`,
					evaluationID, op.AthleteID, op.SubskillID)
			default:
				f, ok := rating.Finite(op.Rating)
				if !ok {
					return fmt.Errorf("%w: operation %d: %w", ErrInvalidPayload, i, rating.ErrNotFinite)
				}
				_, err = tx.ExecContext(ctx, upsertItem, evaluationID, op.AthleteID, op.SubskillID, f, nullString(op.Comments))
			}
			if err != nil {
				return fmt.Errorf("apply operation %d: %w", i, err)
			}
		}
		return nil
	})
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, evaluationID string) (model.Evaluation, error) {
	ev := model.Evaluation{ID: evaluationID}
	var teamID, notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT org_id, template_id, team_id, coach_id, notes FROM evaluations WHERE id = ?`, evaluationID,
	).Scan(&ev.OrgID, &ev.TemplateID, &teamID, &ev.CoachID, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("load evaluation: %w", err)
	}
	ev.TeamID, ev.Notes = teamID.String, notes.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT athlete_id, subskill_id, rating FROM evaluation_items
		WHERE evaluation_id = ? ORDER BY athlete_id, subskill_id`, evaluationID)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	ev.Items = []model.LoadedItem{}
	for rows.Next() {
		var (
			it model.LoadedItem
			r  float64
		)
		if err := rows.Scan(&it.AthleteID, &it.SubskillID, &r); err != nil {
			return model.Evaluation{}, fmt.Errorf("scan item: %w", err)
		}
		it.Rating = rating.Of(r)
		ev.Items = append(ev.Items, it)
		if n := len(ev.Athletes); n == 0 || ev.Athletes[n-1].ID != it.AthleteID {
			ev.Athletes = append(ev.Athletes, model.Athlete{ID: it.AthleteID, TeamID: ev.TeamID})
		}
	}
	if err := rows.Err(); err != nil {
		return model.Evaluation{}, fmt.Errorf("load items: %w", err)
	}
	return ev, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
