package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pulse/api/internal/store"
)

// PgFTS implements Searcher with PostgreSQL full-text search on topics.fts.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks active topics with plainto_tsquery and ts_rank. The title is
// the first line of the stored text.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "t.fts @@ plainto_tsquery('english', $1) AND t.lifecycle = 'ACTIVE'"
	args := []any{q.Text}
	if q.SessionID != "" {
		where += " AND t.session_id = $2"
		args = append(args, q.SessionID)
	}

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM topics t WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT t.id, t.session_id, split_part(t.text, E'\n', 1) AS title,
			ts_headline('english', t.text, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM topics t
		WHERE %s
		ORDER BY ts_rank(t.fts, plainto_tsquery('english', $1)) DESC, t.session_id, t.sort_order
		LIMIT %d OFFSET %d`, where, q.limit(), offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadActiveTopics returns every active topic for full reindexing.
func (p *PgFTS) LoadActiveTopics(ctx context.Context) ([]store.Topic, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, text, sort_order
		FROM topics
		WHERE lifecycle = 'ACTIVE'
		ORDER BY session_id, sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	defer rows.Close()

	topics := make([]store.Topic, 0)
	for rows.Next() {
		t := store.Topic{Lifecycle: store.LifecycleActive}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Text, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return topics, nil
}
