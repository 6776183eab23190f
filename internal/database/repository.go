package database

import (
	"context"
	"time"
)

// EncodingStore provides access to persisted face encodings, one record per
// identity. Save overwrites any prior encoding for the identity.
type EncodingStore interface {
	// Save stores an encoding, replacing any existing one for the identity.
	Save(ctx context.Context, enc StoredEncoding) error
	// Get retrieves the encoding for an identity, ErrNotFound if absent.
	Get(ctx context.Context, kind, identity string) (*StoredEncoding, error)
	// List returns all encodings of a kind, used for bulk cache loads.
	List(ctx context.Context, kind string) ([]StoredEncoding, error)
	// Count returns the number of encodings of a kind.
	Count(ctx context.Context, kind string) (int, error)
	// FindNearest returns up to limit encodings of a kind ordered by cosine
	// distance from the probe, with distances.
	FindNearest(ctx context.Context, kind string, embedding []float32, limit int) ([]StoredEncoding, []float64, error)
}

// SessionStore persists verification sessions. Terminal transitions are
// single-writer: only the capture path writes completed, only the sweep or
// lazy check writes expired.
type SessionStore interface {
	// Create stores a new pending session.
	Create(ctx context.Context, s *VerificationSession) error
	// Get retrieves a session by ID, ErrSessionNotFound if absent.
	Get(ctx context.Context, id string) (*VerificationSession, error)
	// Complete records the terminal outcome of a pending session. Returns
	// ErrSessionAlreadyResolved if the session is no longer pending; the
	// guard makes concurrent completion attempts first-write-wins.
	Complete(ctx context.Context, id string, outcome Outcome) error
	// MarkExpired flips a pending session to expired.
	MarkExpired(ctx context.Context, id string) error
	// MarkConsumed records that a completed session's outcome has authorized
	// its one privileged action.
	MarkConsumed(ctx context.Context, id string) error
	// ExpireOverdue marks all pending sessions past their deadline as
	// expired and returns the count. Advisory cleanup only; readers check
	// the wall-clock deadline independently.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// VoteStore persists immutable cast-vote records. The uniqueness constraint
// on (matric, election, position) is the real double-voting enforcement;
// HasVoted is a convenience pre-check only.
type VoteStore interface {
	// HasVoted checks whether any vote exists for (matric, election).
	HasVoted(ctx context.Context, matric, electionID string) (bool, error)
	// Insert stores a batch of votes in a single transaction. A uniqueness
	// violation rolls back the whole batch and returns ErrAlreadyVoted.
	Insert(ctx context.Context, votes []Vote) error
	// CountByCandidate tallies votes per candidate for an election.
	CountByCandidate(ctx context.Context, electionID string) ([]VoteCount, error)
}

// VoterStore persists the voter roll.
type VoterStore interface {
	Add(ctx context.Context, matric string) error
	Exists(ctx context.Context, matric string) (bool, error)
	List(ctx context.Context) ([]Voter, error)
}

// AdminStore persists the admin roster.
type AdminStore interface {
	Add(ctx context.Context, chatID string) error
	Remove(ctx context.Context, chatID string) error
	Exists(ctx context.Context, chatID string) (bool, error)
	List(ctx context.Context) ([]Admin, error)
}

// ElectionStore persists elections.
type ElectionStore interface {
	Create(ctx context.Context, e *Election) error
	Get(ctx context.Context, id string) (*Election, error)
	List(ctx context.Context) ([]Election, error)
	// ListActive returns elections whose window contains now.
	ListActive(ctx context.Context, now time.Time) ([]Election, error)
}

// CandidateStore persists candidates.
type CandidateStore interface {
	Add(ctx context.Context, c *Candidate) error
	Get(ctx context.Context, id string) (*Candidate, error)
	ListByElection(ctx context.Context, electionID string) ([]Candidate, error)
}

// ReportStore persists voter issue reports.
type ReportStore interface {
	Add(ctx context.Context, r *Report) error
	List(ctx context.Context) ([]Report, error)
}
