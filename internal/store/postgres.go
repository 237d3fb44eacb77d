package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db *sql.DB
	q  querier
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateSession(ctx context.Context, session Session) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sessions (id, title, outline, presenter_key_hash)
		VALUES ($1, $2, $3, $4)
	`, session.ID, session.Title, session.Outline, session.PresenterKeyHash)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var item Session
	err := s.q.QueryRowContext(ctx, `
		SELECT id, title, outline, presenter_key_hash, created_at, updated_at
		FROM sessions
		WHERE id=$1
	`, sessionID).Scan(&item.ID, &item.Title, &item.Outline, &item.PresenterKeyHash, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return item, nil
}

// ReadActiveTopics returns the session's active topics ordered by sort order.
func (s *PostgresStore) ReadActiveTopics(ctx context.Context, sessionID string) ([]Topic, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, session_id, text, sort_order, lifecycle, created_at, updated_at
		FROM topics
		WHERE session_id=$1 AND lifecycle='ACTIVE'
		ORDER BY sort_order ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read active topics: %w", err)
	}
	defer rows.Close()

	items := make([]Topic, 0)
	for rows.Next() {
		var item Topic
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Text, &item.SortOrder, &item.Lifecycle, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTopic(ctx context.Context, sessionID, topicID string) (Topic, error) {
	var item Topic
	err := s.q.QueryRowContext(ctx, `
		SELECT id, session_id, text, sort_order, lifecycle, created_at, updated_at
		FROM topics
		WHERE session_id=$1 AND id=$2
	`, sessionID, topicID).Scan(&item.ID, &item.SessionID, &item.Text, &item.SortOrder, &item.Lifecycle, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Topic{}, ErrNotFound
	}
	if err != nil {
		return Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return item, nil
}

// WriteTopic inserts the topic or updates text, sort order and lifecycle of
// an existing row with the same id. A row owned by another session is never
// touched.
func (s *PostgresStore) WriteTopic(ctx context.Context, topic Topic) error {
	lifecycle := topic.Lifecycle
	if lifecycle == "" {
		lifecycle = LifecycleActive
	}
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO topics (id, session_id, text, sort_order, lifecycle)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET text=EXCLUDED.text, sort_order=EXCLUDED.sort_order, lifecycle=EXCLUDED.lifecycle, updated_at=NOW()
		WHERE topics.session_id = EXCLUDED.session_id
	`, topic.ID, topic.SessionID, topic.Text, topic.SortOrder, string(lifecycle))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("write topic %s: %w", topic.ID, ErrSortOrderConflict)
		}
		return fmt.Errorf("write topic %s: %w", topic.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write topic rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("write topic %s: %w", topic.ID, ErrSessionMismatch)
	}
	return nil
}

// DeleteSession removes the session; topics, responses and selections go
// with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadSelections returns every selection recorded against any topic of the
// session, archived topics included.
func (s *PostgresStore) ReadSelections(ctx context.Context, sessionID string) ([]Selection, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT sel.response_id, sel.theme_id, sel.selection
		FROM selections sel
		JOIN topics t ON t.id = sel.theme_id
		WHERE t.session_id=$1
		ORDER BY sel.id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read selections: %w", err)
	}
	defer rows.Close()

	items := make([]Selection, 0)
	for rows.Next() {
		var item Selection
		if err := rows.Scan(&item.ResponseID, &item.ThemeID, &item.Selection); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return items, nil
}

// InsertResponse records a response and its selections atomically.
func (s *PostgresStore) InsertResponse(ctx context.Context, response Response, selections []Selection) error {
	return s.InTx(ctx, func(tx *PostgresStore) error {
		if _, err := tx.q.ExecContext(ctx, `
			INSERT INTO responses (id, session_id, participant)
			VALUES ($1, $2, $3)
		`, response.ID, response.SessionID, response.Participant); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		for _, sel := range selections {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO selections (response_id, theme_id, selection)
				VALUES ($1, $2, $3)
			`, response.ID, sel.ThemeID, string(sel.Selection)); err != nil {
				return fmt.Errorf("insert selection: %w", err)
			}
		}
		return nil
	})
}

// DeleteResponse removes a response; its selections go with it.
func (s *PostgresStore) DeleteResponse(ctx context.Context, sessionID, responseID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM responses WHERE session_id=$1 AND id=$2`, sessionID, responseID)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete response rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx *PostgresStore) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WithinTx is InTx narrowed to the topic surface the reconciler writes through.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(TopicStore) error) error {
	return s.InTx(ctx, func(tx *PostgresStore) error {
		return fn(tx)
	})
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
