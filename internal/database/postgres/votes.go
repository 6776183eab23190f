package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/facevote/internal/database"
)

// VoteRepository provides PostgreSQL-backed vote storage. The unique index
// on (matric, election_id, position) is the double-voting enforcement; the
// application-level pre-check only exists for friendlier messages.
type VoteRepository struct {
	pool *Pool
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(pool *Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// HasVoted checks whether any vote exists for (matric, election)
func (r *VoteRepository) HasVoted(ctx context.Context, matric, electionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM votes WHERE matric = $1 AND election_id = $2)",
		matric, electionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote exists: %w", err)
	}
	return exists, nil
}

// Insert stores a batch of votes in a single transaction. A uniqueness
// violation on any row rolls back the whole batch.
func (r *VoteRepository) Insert(ctx context.Context, votes []database.Vote) error {
	if len(votes) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO votes (matric, election_id, candidate_id, position, hash, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, v := range votes {
		if _, err := tx.ExecContext(ctx, query,
			v.Matric, v.ElectionID, v.CandidateID, v.Position, v.Hash, v.Timestamp); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return database.ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit votes: %w", err)
	}
	return nil
}

// CountByCandidate tallies votes per candidate for an election
func (r *VoteRepository) CountByCandidate(ctx context.Context, electionID string) ([]database.VoteCount, error) {
	query := `
		SELECT v.candidate_id, c.name, c.position, COUNT(*) AS votes
		FROM votes v
		JOIN candidates c ON c.id = v.candidate_id
		WHERE v.election_id = $1
		GROUP BY v.candidate_id, c.name, c.position
		ORDER BY c.position, votes DESC, c.name
	`

	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("query vote counts: %w", err)
	}
	defer rows.Close()

	var counts []database.VoteCount
	for rows.Next() {
		var c database.VoteCount
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.Position, &c.Count); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote counts: %w", err)
	}
	return counts, nil
}

var _ database.VoteStore = (*VoteRepository)(nil)
