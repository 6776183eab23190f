package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facevote/internal/database"
)

// ElectionRepository provides PostgreSQL-backed election storage. Status is
// never stored; it is derived from the voting window on read.
type ElectionRepository struct {
	pool *Pool
}

// NewElectionRepository creates a new PostgreSQL election repository
func NewElectionRepository(pool *Pool) *ElectionRepository {
	return &ElectionRepository{pool: pool}
}

// Create stores an election
func (r *ElectionRepository) Create(ctx context.Context, e *database.Election) error {
	query := `
		INSERT INTO elections (id, title, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, e.ID, e.Title, e.StartTime, e.EndTime, e.CreatedAt); err != nil {
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

// Get retrieves an election by ID
func (r *ElectionRepository) Get(ctx context.Context, id string) (*database.Election, error) {
	query := `
		SELECT id, title, start_time, end_time, created_at
		FROM elections
		WHERE id = $1
	`

	var e database.Election
	err := r.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.Title, &e.StartTime, &e.EndTime, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query election: %w", err)
	}
	return &e, nil
}

// List returns all elections ordered by start time
func (r *ElectionRepository) List(ctx context.Context) ([]database.Election, error) {
	query := `
		SELECT id, title, start_time, end_time, created_at
		FROM elections
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

// ListActive returns elections whose window contains now
func (r *ElectionRepository) ListActive(ctx context.Context, now time.Time) ([]database.Election, error) {
	query := `
		SELECT id, title, start_time, end_time, created_at
		FROM elections
		WHERE start_time <= $1 AND end_time >= $1
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query active elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func scanElections(rows *sql.Rows) ([]database.Election, error) {
	var elections []database.Election
	for rows.Next() {
		var e database.Election
		if err := rows.Scan(&e.ID, &e.Title, &e.StartTime, &e.EndTime, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elections: %w", err)
	}
	return elections, nil
}

// CandidateRepository provides PostgreSQL-backed candidate storage.
type CandidateRepository struct {
	pool *Pool
}

// NewCandidateRepository creates a new PostgreSQL candidate repository
func NewCandidateRepository(pool *Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Add stores a candidate
func (r *CandidateRepository) Add(ctx context.Context, c *database.Candidate) error {
	query := `
		INSERT INTO candidates (id, election_id, name, position, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, c.ID, c.ElectionID, c.Name, c.Position, c.ImagePath, c.CreatedAt); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// Get retrieves a candidate by ID
func (r *CandidateRepository) Get(ctx context.Context, id string) (*database.Candidate, error) {
	query := `
		SELECT id, election_id, name, position, image_path, created_at
		FROM candidates
		WHERE id = $1
	`

	var c database.Candidate
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.ImagePath, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query candidate: %w", err)
	}
	return &c, nil
}

// ListByElection returns all candidates for an election
func (r *CandidateRepository) ListByElection(ctx context.Context, electionID string) ([]database.Candidate, error) {
	query := `
		SELECT id, election_id, name, position, image_path, created_at
		FROM candidates
		WHERE election_id = $1
		ORDER BY position, name
	`
	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []database.Candidate
	for rows.Next() {
		var c database.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.ImagePath, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

var _ database.ElectionStore = (*ElectionRepository)(nil)
var _ database.CandidateStore = (*CandidateRepository)(nil)
