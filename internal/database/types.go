package database

import (
	"time"
)

// Voter is a registered voter identified by matric number.
type Voter struct {
	Matric       string    `json:"matric"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Admin is an election administrator identified by chat platform user ID.
type Admin struct {
	ChatID       string    `json:"chat_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Election statuses derived from wall-clock time. The stored status column
// is a cache only; StatusAt is authoritative on every read.
const (
	ElectionPending = "pending"
	ElectionActive  = "active"
	ElectionEnded   = "ended"
)

// Election represents a single election with a voting window.
type Election struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusAt computes the election status for the given instant. Status is a
// pure function of time relative to [StartTime, EndTime] and is never set
// independently.
func (e *Election) StatusAt(now time.Time) string {
	switch {
	case now.Before(e.StartTime):
		return ElectionPending
	case now.After(e.EndTime):
		return ElectionEnded
	default:
		return ElectionActive
	}
}

// Candidate is a contestant for one position in one election.
type Candidate struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Name       string    `json:"name"`
	Position   string    `json:"position"`
	ImagePath  string    `json:"image_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Vote is an immutable cast-vote record. Uniqueness is enforced per
// (matric, election, position): one choice per contested position.
type Vote struct {
	Matric      string    `json:"matric"`
	ElectionID  string    `json:"election_id"`
	CandidateID string    `json:"candidate_id"`
	Position    string    `json:"position"`
	Hash        string    `json:"hash"`
	Timestamp   time.Time `json:"timestamp"`
}

// VoteCount is a per-candidate tally for election results.
type VoteCount struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Count       int    `json:"count"`
}

// Report is a free-text issue report filed by a voter.
type Report struct {
	ID        string    `json:"id"`
	VoterID   string    `json:"voter_id"`
	Issue     string    `json:"issue"`
	Timestamp time.Time `json:"timestamp"`
}

// Verification session purposes.
const (
	PurposeAdmin             = "admin"
	PurposeVote              = "vote"
	PurposeVoterRegistration = "voter_registration"
)

// Verification session statuses. Completed and expired are terminal; no
// session re-opens after either.
const (
	SessionPending   = "pending"
	SessionCompleted = "completed"
	SessionExpired   = "expired"
)

// Outcome is the tagged result of a completed verification session.
// Matric is set only when Verified is true and the purpose required
// identity discovery.
type Outcome struct {
	Verified bool   `json:"verified"`
	Matric   string `json:"matric,omitempty"`
}

// VerificationSession binds a chat requester to an out-of-band face
// capture step. Created pending, completed exactly once by the capture
// layer or expired by TTL.
type VerificationSession struct {
	ID         string
	UserID     string
	Purpose    string
	ElectionID string // optional, set for vote sessions
	Status     string
	Result     *Outcome
	Consumed   bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// IsExpired reports whether the session deadline has passed, independent of
// the stored status. The read path must check this because a background
// sweep may lag.
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Face encoding kinds. Voter encodings are searched 1:N; admin encodings
// are only ever compared 1:1 against a claimed identity.
const (
	EncodingVoter = "voter"
	EncodingAdmin = "admin"
)

// StoredEncoding is a face embedding persisted per identity.
type StoredEncoding struct {
	Identity  string
	Kind      string
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}
