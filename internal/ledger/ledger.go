// Package ledger records cast votes as an append-only, tamper-evident log.
// Votes are never updated or deleted; each record carries a hash binding
// the voter, candidate, election and timestamp together.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/facematch"
)

// Receipt is returned to the voter for one recorded vote. It is a prefix of
// the vote hash, long enough to look up the record, short enough to read
// back over chat.
type Receipt struct {
	Position    string `json:"position"`
	CandidateID string `json:"candidate_id"`
	Receipt     string `json:"receipt"`
}

// Ledger validates and records ballots.
type Ledger struct {
	votes      database.VoteStore
	elections  database.ElectionStore
	candidates database.CandidateStore
	voters     database.VoterStore
	receiptLen int
	now        func() time.Time
}

// hashHexLen is the length of a hex-encoded SHA-256 vote hash.
const hashHexLen = sha256.Size * 2

// New creates a ledger. receiptLen is the number of hash hex characters
// included in voter receipts; values outside (0, 64] fall back to the full
// hash.
func New(votes database.VoteStore, elections database.ElectionStore, candidates database.CandidateStore, voters database.VoterStore, receiptLen int) *Ledger {
	if receiptLen < 1 || receiptLen > hashHexLen {
		receiptLen = hashHexLen
	}
	return &Ledger{
		votes:      votes,
		elections:  elections,
		candidates: candidates,
		voters:     voters,
		receiptLen: receiptLen,
		now:        time.Now,
	}
}

// ComputeHash derives the tamper-evidence hash for a single vote. Any later
// change to voter, candidate, election or timestamp invalidates it.
func ComputeHash(matric, candidateID, electionID string, ts time.Time) string {
	payload := fmt.Sprintf("%s:%s:%s:%s", matric, candidateID, electionID, ts.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyVote recomputes a stored vote's hash and reports whether the record
// is intact.
func VerifyVote(v database.Vote) bool {
	return v.Hash == ComputeHash(v.Matric, v.CandidateID, v.ElectionID, v.Timestamp)
}

// Cast records one ballot: one candidate per contested position, all
// positions in a single atomic batch. Either every vote in the ballot is
// recorded or none is.
func (l *Ledger) Cast(ctx context.Context, matric, electionID string, candidateIDs []string) ([]Receipt, error) {
	matric = facematch.NormalizeIdentity(matric)
	if matric == "" {
		return nil, fmt.Errorf("matric is required")
	}
	if len(candidateIDs) == 0 {
		return nil, fmt.Errorf("ballot is empty")
	}

	registered, err := l.voters.Exists(ctx, matric)
	if err != nil {
		return nil, fmt.Errorf("failed to check voter roll: %w", err)
	}
	if !registered {
		return nil, database.ErrVoterNotRegistered
	}

	election, err := l.elections.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if election.StatusAt(now) != database.ElectionActive {
		return nil, database.ErrElectionNotActive
	}

	votes := make([]database.Vote, 0, len(candidateIDs))
	seen := make(map[string]struct{}, len(candidateIDs))
	for _, candidateID := range candidateIDs {
		candidate, err := l.candidates.Get(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if candidate.ElectionID != electionID {
			return nil, fmt.Errorf("candidate %s does not run in election %s", candidateID, electionID)
		}

		position := facematch.NormalizeName(candidate.Position)
		if _, dup := seen[position]; dup {
			return nil, fmt.Errorf("ballot selects two candidates for position %q", candidate.Position)
		}
		seen[position] = struct{}{}

		votes = append(votes, database.Vote{
			Matric:      matric,
			ElectionID:  electionID,
			CandidateID: candidateID,
			Position:    position,
			Hash:        ComputeHash(matric, candidateID, electionID, now),
			Timestamp:   now,
		})
	}

	if err := l.votes.Insert(ctx, votes); err != nil {
		return nil, err
	}

	receipts := make([]Receipt, len(votes))
	for i, v := range votes {
		receipts[i] = Receipt{
			Position:    v.Position,
			CandidateID: v.CandidateID,
			Receipt:     v.Hash[:l.receiptLen],
		}
	}
	return receipts, nil
}

// HasVoted reports whether the voter already cast any vote in the election.
func (l *Ledger) HasVoted(ctx context.Context, matric, electionID string) (bool, error) {
	return l.votes.HasVoted(ctx, facematch.NormalizeIdentity(matric), electionID)
}

// Results tallies votes per candidate. Result visibility policy (ended
// elections only) is enforced by the election service.
func (l *Ledger) Results(ctx context.Context, electionID string) ([]database.VoteCount, error) {
	return l.votes.CountByCandidate(ctx, electionID)
}
