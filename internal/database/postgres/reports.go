package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facevote/internal/database"
)

// ReportRepository provides PostgreSQL-backed storage for voter issue reports.
type ReportRepository struct {
	pool *Pool
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(pool *Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Add stores a report
func (r *ReportRepository) Add(ctx context.Context, report *database.Report) error {
	query := `
		INSERT INTO reports (id, voter_id, issue, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, report.ID, report.VoterID, report.Issue, report.Timestamp); err != nil {
		return fmt.Errorf("add report: %w", err)
	}
	return nil
}

// List returns all reports, newest first
func (r *ReportRepository) List(ctx context.Context) ([]database.Report, error) {
	query := `
		SELECT id, voter_id, issue, created_at
		FROM reports
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []database.Report
	for rows.Next() {
		var rep database.Report
		if err := rows.Scan(&rep.ID, &rep.VoterID, &rep.Issue, &rep.Timestamp); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

var _ database.ReportStore = (*ReportRepository)(nil)
