package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facevote/internal/database"
)

// VoterRepository provides PostgreSQL-backed voter roll storage.
type VoterRepository struct {
	pool *Pool
}

// NewVoterRepository creates a new PostgreSQL voter repository
func NewVoterRepository(pool *Pool) *VoterRepository {
	return &VoterRepository{pool: pool}
}

// Add registers a matric on the voter roll. Re-adding is a no-op.
func (r *VoterRepository) Add(ctx context.Context, matric string) error {
	query := `
		INSERT INTO voters (matric) VALUES ($1)
		ON CONFLICT (matric) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, matric); err != nil {
		return fmt.Errorf("add voter: %w", err)
	}
	return nil
}

// Exists checks whether a matric is on the roll
func (r *VoterRepository) Exists(ctx context.Context, matric string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM voters WHERE matric = $1)", matric).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check voter exists: %w", err)
	}
	return exists, nil
}

// List returns the voter roll
func (r *VoterRepository) List(ctx context.Context) ([]database.Voter, error) {
	rows, err := r.pool.Query(ctx, "SELECT matric, registered_at FROM voters ORDER BY matric")
	if err != nil {
		return nil, fmt.Errorf("query voters: %w", err)
	}
	defer rows.Close()

	var voters []database.Voter
	for rows.Next() {
		var v database.Voter
		if err := rows.Scan(&v.Matric, &v.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voters: %w", err)
	}
	return voters, nil
}

// AdminRepository provides PostgreSQL-backed admin roster storage.
type AdminRepository struct {
	pool *Pool
}

// NewAdminRepository creates a new PostgreSQL admin repository
func NewAdminRepository(pool *Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// Add registers an admin chat ID
func (r *AdminRepository) Add(ctx context.Context, chatID string) error {
	query := `
		INSERT INTO admins (chat_id) VALUES ($1)
		ON CONFLICT (chat_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

// Remove deletes an admin
func (r *AdminRepository) Remove(ctx context.Context, chatID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM admins WHERE chat_id = $1", chatID); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	return nil
}

// Exists checks whether a chat ID belongs to an admin
func (r *AdminRepository) Exists(ctx context.Context, chatID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM admins WHERE chat_id = $1)", chatID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin exists: %w", err)
	}
	return exists, nil
}

// List returns the admin roster
func (r *AdminRepository) List(ctx context.Context) ([]database.Admin, error) {
	rows, err := r.pool.Query(ctx, "SELECT chat_id, registered_at FROM admins ORDER BY chat_id")
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	defer rows.Close()

	var admins []database.Admin
	for rows.Next() {
		var a database.Admin
		if err := rows.Scan(&a.ChatID, &a.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return admins, nil
}

var _ database.VoterStore = (*VoterRepository)(nil)
var _ database.AdminStore = (*AdminRepository)(nil)
