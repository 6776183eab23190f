//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed int) []float32 {
	emb := make([]float32, database.EncodingDim)
	for i := range emb {
		emb[i] = float32((i+seed)%database.EncodingDim) / float32(database.EncodingDim)
	}
	return emb
}

func TestEncodingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEncodingRepository(pool)

	t.Run("SaveAndGet", func(t *testing.T) {
		enc := database.StoredEncoding{
			Identity:  "STU001",
			Kind:      database.EncodingVoter,
			Embedding: testEmbedding(0),
			Dim:       database.EncodingDim,
		}
		if err := repo.Save(ctx, enc); err != nil {
			t.Fatalf("Failed to save encoding: %v", err)
		}

		got, err := repo.Get(ctx, database.EncodingVoter, "STU001")
		if err != nil {
			t.Fatalf("Failed to get encoding: %v", err)
		}
		if got.Identity != "STU001" || got.Kind != database.EncodingVoter {
			t.Errorf("got %+v", got)
		}
		if len(got.Embedding) != database.EncodingDim {
			t.Errorf("Expected %d dimensions, got %d", database.EncodingDim, len(got.Embedding))
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := repo.Get(ctx, database.EncodingVoter, "nonexistent"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		enc := database.StoredEncoding{
			Identity:  "STU001",
			Kind:      database.EncodingVoter,
			Embedding: testEmbedding(7),
			Dim:       database.EncodingDim,
		}
		if err := repo.Save(ctx, enc); err != nil {
			t.Fatalf("Failed to overwrite encoding: %v", err)
		}

		count, err := repo.Count(ctx, database.EncodingVoter)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Overwrite must not create a second row, count = %d", count)
		}
	})

	t.Run("KindsAreSeparate", func(t *testing.T) {
		enc := database.StoredEncoding{
			Identity:  "admin-1",
			Kind:      database.EncodingAdmin,
			Embedding: testEmbedding(3),
			Dim:       database.EncodingDim,
		}
		if err := repo.Save(ctx, enc); err != nil {
			t.Fatalf("Failed to save admin encoding: %v", err)
		}

		voters, err := repo.List(ctx, database.EncodingVoter)
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		for _, v := range voters {
			if v.Kind != database.EncodingVoter {
				t.Errorf("admin encoding leaked into voter list: %+v", v)
			}
		}
	})

	t.Run("FindNearest", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			enc := database.StoredEncoding{
				Identity:  fmt.Sprintf("STU10%d", i),
				Kind:      database.EncodingVoter,
				Embedding: testEmbedding(i * 10),
				Dim:       database.EncodingDim,
			}
			if err := repo.Save(ctx, enc); err != nil {
				t.Fatalf("Failed to save encoding: %v", err)
			}
		}

		encodings, distances, err := repo.FindNearest(ctx, database.EncodingVoter, testEmbedding(0), 3)
		if err != nil {
			t.Fatalf("Failed to find nearest: %v", err)
		}
		if len(encodings) != 3 || len(distances) != 3 {
			t.Fatalf("Expected 3 results, got %d/%d", len(encodings), len(distances))
		}
		if encodings[0].Identity != "STU100" {
			t.Errorf("Expected exact match first, got %s", encodings[0].Identity)
		}
		for i := 1; i < len(distances); i++ {
			if distances[i] < distances[i-1] {
				t.Error("Distances not sorted")
			}
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSessionRepository(pool)

	newSession := func(t *testing.T) *database.VerificationSession {
		t.Helper()
		now := time.Now().UTC().Truncate(time.Microsecond)
		s := &database.VerificationSession{
			ID:        uuid.NewString(),
			UserID:    "chat-1",
			Purpose:   database.PurposeVote,
			Status:    database.SessionPending,
			CreatedAt: now,
			ExpiresAt: now.Add(10 * time.Minute),
		}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		return s
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newSession(t)
		got, err := repo.Get(ctx, s.ID)
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got.Status != database.SessionPending || got.Result != nil || got.Consumed {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, database.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("CompleteOnce", func(t *testing.T) {
		s := newSession(t)
		if err := repo.Complete(ctx, s.ID, database.Outcome{Verified: true, Matric: "STU001"}); err != nil {
			t.Fatalf("Failed to complete: %v", err)
		}

		err := repo.Complete(ctx, s.ID, database.Outcome{Verified: false})
		if !errors.Is(err, database.ErrSessionAlreadyResolved) {
			t.Fatalf("Expected ErrSessionAlreadyResolved, got %v", err)
		}

		got, _ := repo.Get(ctx, s.ID)
		if got.Result == nil || !got.Result.Verified || got.Result.Matric != "STU001" {
			t.Errorf("first outcome overwritten: %+v", got.Result)
		}
	})

	t.Run("ExpireBlocksComplete", func(t *testing.T) {
		s := newSession(t)
		if err := repo.MarkExpired(ctx, s.ID); err != nil {
			t.Fatalf("Failed to expire: %v", err)
		}
		if err := repo.Complete(ctx, s.ID, database.Outcome{Verified: true}); !errors.Is(err, database.ErrSessionAlreadyResolved) {
			t.Fatalf("Expected ErrSessionAlreadyResolved, got %v", err)
		}
	})

	t.Run("ConsumeOnce", func(t *testing.T) {
		s := newSession(t)
		repo.Complete(ctx, s.ID, database.Outcome{Verified: true, Matric: "STU001"})

		if err := repo.MarkConsumed(ctx, s.ID); err != nil {
			t.Fatalf("Failed to consume: %v", err)
		}
		if err := repo.MarkConsumed(ctx, s.ID); !errors.Is(err, database.ErrSessionAlreadyResolved) {
			t.Fatalf("Expected ErrSessionAlreadyResolved, got %v", err)
		}
	})

	t.Run("ExpireOverdue", func(t *testing.T) {
		s := newSession(t)
		n, err := repo.ExpireOverdue(ctx, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("Failed to expire overdue: %v", err)
		}
		if n < 1 {
			t.Errorf("Expected at least 1 expired, got %d", n)
		}
		got, _ := repo.Get(ctx, s.ID)
		if got.Status != database.SessionExpired {
			t.Errorf("status = %s", got.Status)
		}
	})
}

func TestVoteRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	votes := NewVoteRepository(pool)
	elections := NewElectionRepository(pool)
	candidates := NewCandidateRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	election := &database.Election{
		ID:        uuid.NewString(),
		Title:     "Spring 2025",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := elections.Create(ctx, election); err != nil {
		t.Fatalf("Failed to create election: %v", err)
	}

	ada := &database.Candidate{ID: uuid.NewString(), ElectionID: election.ID, Name: "Ada", Position: "president", CreatedAt: now}
	grace := &database.Candidate{ID: uuid.NewString(), ElectionID: election.ID, Name: "Grace", Position: "president", CreatedAt: now}
	for _, c := range []*database.Candidate{ada, grace} {
		if err := candidates.Add(ctx, c); err != nil {
			t.Fatalf("Failed to add candidate: %v", err)
		}
	}

	vote := func(matric, candidateID string) database.Vote {
		return database.Vote{
			Matric:      matric,
			ElectionID:  election.ID,
			CandidateID: candidateID,
			Position:    "president",
			Hash:        fmt.Sprintf("%064d", 1),
			Timestamp:   now,
		}
	}

	t.Run("InsertAndHasVoted", func(t *testing.T) {
		if err := votes.Insert(ctx, []database.Vote{vote("STU001", ada.ID)}); err != nil {
			t.Fatalf("Failed to insert vote: %v", err)
		}

		voted, err := votes.HasVoted(ctx, "STU001", election.ID)
		if err != nil || !voted {
			t.Fatalf("HasVoted = %v, %v", voted, err)
		}
	})

	t.Run("UniqueConstraint", func(t *testing.T) {
		err := votes.Insert(ctx, []database.Vote{vote("STU001", grace.ID)})
		if !errors.Is(err, database.ErrAlreadyVoted) {
			t.Fatalf("Expected ErrAlreadyVoted, got %v", err)
		}
	})

	t.Run("BatchRollsBack", func(t *testing.T) {
		batch := []database.Vote{vote("STU002", ada.ID), vote("STU001", grace.ID)}
		if err := votes.Insert(ctx, batch); !errors.Is(err, database.ErrAlreadyVoted) {
			t.Fatalf("Expected ErrAlreadyVoted, got %v", err)
		}

		// The clean first row must not survive the rollback.
		voted, err := votes.HasVoted(ctx, "STU002", election.ID)
		if err != nil {
			t.Fatalf("HasVoted failed: %v", err)
		}
		if voted {
			t.Error("partial batch leaked into the ledger")
		}
	})

	t.Run("CountByCandidate", func(t *testing.T) {
		votes.Insert(ctx, []database.Vote{vote("STU003", ada.ID)})
		votes.Insert(ctx, []database.Vote{vote("STU004", grace.ID)})

		counts, err := votes.CountByCandidate(ctx, election.ID)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		total := 0
		for _, c := range counts {
			total += c.Count
			if c.Name == "" || c.Position == "" {
				t.Errorf("count row missing candidate join: %+v", c)
			}
		}
		if total != 3 {
			t.Errorf("Expected 3 votes total, got %d", total)
		}
	})
}

func TestRosterRepositories(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	voters := NewVoterRepository(pool)
	admins := NewAdminRepository(pool)

	t.Run("Voters", func(t *testing.T) {
		if err := voters.Add(ctx, "STU001"); err != nil {
			t.Fatalf("Failed to add voter: %v", err)
		}
		// Idempotent re-import.
		if err := voters.Add(ctx, "STU001"); err != nil {
			t.Fatalf("Re-adding voter must not fail: %v", err)
		}

		exists, err := voters.Exists(ctx, "STU001")
		if err != nil || !exists {
			t.Fatalf("Exists = %v, %v", exists, err)
		}

		list, err := voters.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list voters: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("Expected 1 voter, got %d", len(list))
		}
	})

	t.Run("Admins", func(t *testing.T) {
		if err := admins.Add(ctx, "admin-42"); err != nil {
			t.Fatalf("Failed to add admin: %v", err)
		}
		exists, _ := admins.Exists(ctx, "admin-42")
		if !exists {
			t.Error("Expected admin to exist")
		}
		if err := admins.Remove(ctx, "admin-42"); err != nil {
			t.Fatalf("Failed to remove admin: %v", err)
		}
		exists, _ = admins.Exists(ctx, "admin-42")
		if exists {
			t.Error("Expected admin to be removed")
		}
	})
}

func TestElectionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewElectionRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	running := &database.Election{
		ID: uuid.NewString(), Title: "Running",
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), CreatedAt: now,
	}
	upcoming := &database.Election{
		ID: uuid.NewString(), Title: "Upcoming",
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), CreatedAt: now,
	}
	for _, e := range []*database.Election{running, upcoming} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Failed to create election: %v", err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, running.ID)
		if err != nil {
			t.Fatalf("Failed to get election: %v", err)
		}
		if got.Title != "Running" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("ListActive", func(t *testing.T) {
		active, err := repo.ListActive(ctx, now)
		if err != nil {
			t.Fatalf("Failed to list active: %v", err)
		}
		if len(active) != 1 || active[0].Title != "Running" {
			t.Errorf("active = %+v", active)
		}
	})
}

func TestReportRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewReportRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := &database.Report{
		ID: uuid.NewString(), VoterID: "STU001",
		Issue: "capture page stuck on camera permission", Timestamp: now.Add(-time.Hour),
	}
	newer := &database.Report{
		ID: uuid.NewString(), VoterID: "STU002",
		Issue: "verification link already expired", Timestamp: now,
	}
	for _, rep := range []*database.Report{older, newer} {
		if err := repo.Add(ctx, rep); err != nil {
			t.Fatalf("Failed to add report: %v", err)
		}
	}

	t.Run("RejectsNonUUIDID", func(t *testing.T) {
		err := repo.Add(ctx, &database.Report{VoterID: "STU003", Issue: "no id set"})
		if err == nil {
			t.Fatal("Expected insert without a UUID to fail")
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		reports, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list reports: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("Expected 2 reports, got %d", len(reports))
		}
		if reports[0].ID != newer.ID || reports[1].ID != older.ID {
			t.Errorf("reports out of order: %+v", reports)
		}
		if !reports[0].Timestamp.Equal(newer.Timestamp) {
			t.Errorf("Timestamp round-trip mismatch: %v != %v", reports[0].Timestamp, newer.Timestamp)
		}
	})
}
