package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facevote/internal/database"
)

// EncodingRepository provides PostgreSQL-backed face encoding storage. The
// pgvector column keeps 1:N search on the database side; callers that hold
// an in-memory index use this repository only for persistence and reloads.
type EncodingRepository struct {
	pool *Pool
}

// NewEncodingRepository creates a new PostgreSQL encoding repository
func NewEncodingRepository(pool *Pool) *EncodingRepository {
	return &EncodingRepository{pool: pool}
}

// Save stores an encoding, replacing any existing one for the identity
func (r *EncodingRepository) Save(ctx context.Context, enc database.StoredEncoding) error {
	query := `
		INSERT INTO face_encodings (identity, kind, embedding, dim, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (kind, identity)
		DO UPDATE SET embedding = EXCLUDED.embedding, dim = EXCLUDED.dim, created_at = NOW()
	`

	vec := pgvector.NewVector(enc.Embedding)
	if _, err := r.pool.Exec(ctx, query, enc.Identity, enc.Kind, vec, enc.Dim); err != nil {
		return fmt.Errorf("save encoding: %w", err)
	}
	return nil
}

// Get retrieves the encoding for an identity
func (r *EncodingRepository) Get(ctx context.Context, kind, identity string) (*database.StoredEncoding, error) {
	query := `
		SELECT identity, kind, embedding, dim, created_at
		FROM face_encodings
		WHERE kind = $1 AND identity = $2
	`

	var enc database.StoredEncoding
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, query, kind, identity).Scan(
		&enc.Identity,
		&enc.Kind,
		&vec,
		&enc.Dim,
		&enc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query encoding: %w", err)
	}

	enc.Embedding = vec.Slice()
	return &enc, nil
}

// List returns all encodings of a kind, used for bulk cache loads
func (r *EncodingRepository) List(ctx context.Context, kind string) ([]database.StoredEncoding, error) {
	query := `
		SELECT identity, kind, embedding, dim, created_at
		FROM face_encodings
		WHERE kind = $1
		ORDER BY identity
	`

	rows, err := r.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", err)
	}
	defer rows.Close()

	return scanEncodings(rows)
}

// Count returns the number of encodings of a kind
func (r *EncodingRepository) Count(ctx context.Context, kind string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_encodings WHERE kind = $1", kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count encodings: %w", err)
	}
	return count, nil
}

// FindNearest returns up to limit encodings of a kind ordered by cosine
// distance from the probe, with distances.
func (r *EncodingRepository) FindNearest(ctx context.Context, kind string, embedding []float32, limit int) ([]database.StoredEncoding, []float64, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Raise ef_search for better recall on small limits.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT identity, kind, embedding, dim, created_at,
		       embedding <=> $2::vector AS distance
		FROM face_encodings
		WHERE kind = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`

	vec := pgvector.NewVector(embedding)
	rows, err := tx.QueryContext(ctx, query, kind, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest encodings: %w", err)
	}
	defer rows.Close()

	var encodings []database.StoredEncoding
	var distances []float64
	for rows.Next() {
		var enc database.StoredEncoding
		var v pgvector.Vector
		var distance float64
		if err := rows.Scan(&enc.Identity, &enc.Kind, &v, &enc.Dim, &enc.CreatedAt, &distance); err != nil {
			return nil, nil, fmt.Errorf("scan encoding: %w", err)
		}
		enc.Embedding = v.Slice()
		encodings = append(encodings, enc)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate encodings: %w", err)
	}
	return encodings, distances, nil
}

func scanEncodings(rows *sql.Rows) ([]database.StoredEncoding, error) {
	var encodings []database.StoredEncoding
	for rows.Next() {
		var enc database.StoredEncoding
		var vec pgvector.Vector
		if err := rows.Scan(&enc.Identity, &enc.Kind, &vec, &enc.Dim, &enc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		enc.Embedding = vec.Slice()
		encodings = append(encodings, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", err)
	}
	return encodings, nil
}

var _ database.EncodingStore = (*EncodingRepository)(nil)
