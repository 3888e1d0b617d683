package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a ranked FTS query over grievances with ts_headline snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "websearch_to_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	where := "g.fts @@ " + tsQuery
	if q.FilterStatus != "" {
		where += fmt.Sprintf(" AND g.status = $%d", argN)
		args = append(args, q.FilterStatus)
		argN++
	}
	if q.FilterCategory != "" {
		where += fmt.Sprintf(" AND g.category = $%d", argN)
		args = append(args, q.FilterCategory)
		argN++
	}
	if q.CitizenID != 0 {
		where += fmt.Sprintf(" AND g.citizen_id = $%d", argN)
		args = append(args, q.CitizenID)
		argN++
	}

	countSQL := "SELECT count(*) FROM grievances g WHERE " + where

	dataSQL := fmt.Sprintf(`
		SELECT g.id, g.title,
			ts_headline('english', coalesce(g.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			g.category, g.status, g.priority, g.district
		FROM grievances g
		WHERE %s
		ORDER BY ts_rank(g.fts, %s) DESC, g.id DESC
		LIMIT %d OFFSET %d`, tsQuery, where, tsQuery, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Category, &r.Status, &r.Priority, &r.District); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all grievance records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]GrievanceRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, category, status, priority, citizen_id, state, district
		FROM grievances
	`)
	if err != nil {
		return nil, fmt.Errorf("load grievances: %w", err)
	}
	defer rows.Close()

	records := make([]GrievanceRecord, 0)
	for rows.Next() {
		var rec GrievanceRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Category, &rec.Status,
			&rec.Priority, &rec.CitizenID, &rec.State, &rec.District); err != nil {
			return nil, fmt.Errorf("scan grievance: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
