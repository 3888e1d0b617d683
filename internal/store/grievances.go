package store

import (
	"context"
	"database/sql"
	"fmt"
)

const grievanceColumns = `id, title, description, citizen_id, department_id, assignee_id, region_id,
	status, priority, category, category_ai, severity_ai, is_spam, sentiment_score, ai_summary,
	privacy_consent, location, region_code, state, district, created_at, updated_at`

func scanGrievance(row interface{ Scan(...any) error }) (Grievance, error) {
	var g Grievance
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.CitizenID, &g.DepartmentID, &g.AssigneeID,
		&g.RegionID, &g.Status, &g.Priority, &g.Category, &g.CategoryAI, &g.SeverityAI, &g.IsSpam,
		&g.SentimentScore, &g.AISummary, &g.PrivacyConsent, &g.Location, &g.RegionCode, &g.State,
		&g.District, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// CreateGrievance inserts the grievance together with its initial timeline
// entry in one transaction.
func (s *PostgresStore) CreateGrievance(ctx context.Context, g Grievance, remark string) (Grievance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Grievance{}, fmt.Errorf("begin create grievance: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO grievances (title, description, citizen_id, department_id, region_id,
			status, priority, category, category_ai, severity_ai, is_spam, sentiment_score,
			ai_summary, privacy_consent, location, region_code, state, district)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+grievanceColumns,
		g.Title, g.Description, g.CitizenID, g.DepartmentID, g.RegionID,
		g.Status, g.Priority, g.Category, g.CategoryAI, g.SeverityAI, g.IsSpam, g.SentimentScore,
		g.AISummary, g.PrivacyConsent, g.Location, g.RegionCode, g.State, g.District)
	created, err := scanGrievance(row)
	if err != nil {
		return Grievance{}, fmt.Errorf("insert grievance: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timeline (grievance_id, status, remark) VALUES ($1, $2, $3)
	`, created.ID, created.Status, remark); err != nil {
		return Grievance{}, fmt.Errorf("insert initial timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Grievance{}, fmt.Errorf("commit create grievance: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetGrievance(ctx context.Context, id int64) (Grievance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE id=$1`, id)
	return scanGrievance(row)
}

func (s *PostgresStore) listGrievances(ctx context.Context, query string, args ...any) ([]Grievance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	defer rows.Close()

	items := make([]Grievance, 0)
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grievance: %w", err)
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grievances: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListGrievances(ctx context.Context, status string, skip, limit int) ([]Grievance, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if status != "" {
		return s.listGrievances(ctx, `
			SELECT `+grievanceColumns+` FROM grievances WHERE status=$1
			ORDER BY created_at DESC OFFSET $2 LIMIT $3
		`, status, skip, limit)
	}
	return s.listGrievances(ctx, `
		SELECT `+grievanceColumns+` FROM grievances
		ORDER BY created_at DESC OFFSET $1 LIMIT $2
	`, skip, limit)
}

func (s *PostgresStore) ListGrievancesByCitizen(ctx context.Context, citizenID int64) ([]Grievance, error) {
	return s.listGrievances(ctx, `
		SELECT `+grievanceColumns+` FROM grievances WHERE citizen_id=$1 ORDER BY created_at DESC
	`, citizenID)
}

func (s *PostgresStore) ListGrievancesByAssignee(ctx context.Context, assigneeID int64) ([]Grievance, error) {
	return s.listGrievances(ctx, `
		SELECT `+grievanceColumns+` FROM grievances WHERE assignee_id=$1 ORDER BY created_at DESC
	`, assigneeID)
}

// TransitionGrievance updates the status and appends the audit row
// atomically. Callers are responsible for validating the transition.
func (s *PostgresStore) TransitionGrievance(ctx context.Context, id int64, newStatus, remark string) (Grievance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Grievance{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE grievances SET status=$2, updated_at=NOW() WHERE id=$1
		RETURNING `+grievanceColumns, id, newStatus)
	updated, err := scanGrievance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Grievance{}, sql.ErrNoRows
		}
		return Grievance{}, fmt.Errorf("update status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timeline (grievance_id, status, remark) VALUES ($1, $2, $3)
	`, id, newStatus, remark); err != nil {
		return Grievance{}, fmt.Errorf("insert timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Grievance{}, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

// AssignGrievance sets the assignee, moves the grievance to Assigned,
// optionally backfills the department, and appends the audit row, all in one
// transaction.
func (s *PostgresStore) AssignGrievance(ctx context.Context, id, officerID int64, departmentID *int64, remark string) (Grievance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Grievance{}, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE grievances
		SET assignee_id=$2, status='Assigned', department_id=COALESCE(department_id, $3), updated_at=NOW()
		WHERE id=$1
		RETURNING `+grievanceColumns, id, officerID, departmentID)
	updated, err := scanGrievance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Grievance{}, sql.ErrNoRows
		}
		return Grievance{}, fmt.Errorf("update assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timeline (grievance_id, status, remark) VALUES ($1, 'Assigned', $2)
	`, id, remark); err != nil {
		return Grievance{}, fmt.Errorf("insert timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Grievance{}, fmt.Errorf("commit assign: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) ListTimeline(ctx context.Context, grievanceID int64) ([]TimelineEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, grievance_id, status, remark, created_at
		FROM timeline WHERE grievance_id=$1 ORDER BY created_at ASC, id ASC
	`, grievanceID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	defer rows.Close()

	items := make([]TimelineEntry, 0)
	for rows.Next() {
		var item TimelineEntry
		if err := rows.Scan(&item.ID, &item.GrievanceID, &item.Status, &item.Remark, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMedia(ctx context.Context, media Media) (Media, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO media (grievance_id, uploader_id, url, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, grievance_id, uploader_id, url, type, created_at
	`, media.GrievanceID, media.UploaderID, media.URL, media.Type)
	var created Media
	if err := row.Scan(&created.ID, &created.GrievanceID, &created.UploaderID, &created.URL, &created.Type, &created.CreatedAt); err != nil {
		return Media{}, fmt.Errorf("insert media: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListMedia(ctx context.Context, grievanceID int64) ([]Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, grievance_id, uploader_id, url, type, created_at
		FROM media WHERE grievance_id=$1 ORDER BY created_at ASC, id ASC
	`, grievanceID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := make([]Media, 0)
	for rows.Next() {
		var item Media
		if err := rows.Scan(&item.ID, &item.GrievanceID, &item.UploaderID, &item.URL, &item.Type, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, feedback Feedback) (Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (grievance_id, rating, comment)
		VALUES ($1, $2, $3)
		RETURNING id, grievance_id, rating, comment, created_at
	`, feedback.GrievanceID, feedback.Rating, feedback.Comment)
	var created Feedback
	if err := row.Scan(&created.ID, &created.GrievanceID, &created.Rating, &created.Comment, &created.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Feedback{}, ErrDuplicateFeedback
		}
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, grievanceID int64) (Feedback, error) {
	var item Feedback
	err := s.db.QueryRowContext(ctx, `
		SELECT id, grievance_id, rating, comment, created_at FROM feedback WHERE grievance_id=$1
	`, grievanceID).Scan(&item.ID, &item.GrievanceID, &item.Rating, &item.Comment, &item.CreatedAt)
	if err != nil {
		return Feedback{}, err
	}
	return item, nil
}

func (s *PostgresStore) DashboardCounts(ctx context.Context) (DashboardCounts, error) {
	var counts DashboardCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'Resolved'),
			COUNT(*) FILTER (WHERE status = 'Resolved'),
			COUNT(*) FILTER (WHERE priority = 'Critical')
		FROM grievances
	`).Scan(&counts.Total, &counts.Open, &counts.Resolved, &counts.Critical)
	if err != nil {
		return DashboardCounts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return counts, nil
}

// Hotspots returns the highest-volume (state, district) groupings among
// non-resolved grievances, descending by count.
func (s *PostgresStore) Hotspots(ctx context.Context, limit int) ([]Hotspot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, district, COUNT(*) AS n
		FROM grievances
		WHERE status <> 'Resolved'
		GROUP BY state, district
		ORDER BY n DESC, state, district
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	defer rows.Close()

	items := make([]Hotspot, 0, limit)
	for rows.Next() {
		var item Hotspot
		if err := rows.Scan(&item.State, &item.District, &item.Count); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hotspots: %w", err)
	}
	return items, nil
}

// Heatmap groups grievances by their region's coordinate pair. Grievances
// without a region or without coordinates are skipped; missing severities
// count as 0.5.
func (s *PostgresStore) Heatmap(ctx context.Context) ([]HeatmapCell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.lat, r.lng, AVG(COALESCE(g.severity_ai, 0.5)), COUNT(*)
		FROM grievances g
		JOIN regions r ON r.id = g.region_id
		WHERE r.lat IS NOT NULL AND r.lng IS NOT NULL
		GROUP BY r.lat, r.lng
	`)
	if err != nil {
		return nil, fmt.Errorf("heatmap: %w", err)
	}
	defer rows.Close()

	items := make([]HeatmapCell, 0)
	for rows.Next() {
		var item HeatmapCell
		if err := rows.Scan(&item.Lat, &item.Lng, &item.Weight, &item.Count); err != nil {
			return nil, fmt.Errorf("scan heatmap cell: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heatmap: %w", err)
	}
	return items, nil
}
