// Package session manages the lifecycle of verification sessions: created
// pending, resolved exactly once to completed, or expired after the TTL.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facevote/internal/database"
)

// Notifier receives resolved sessions so interested clients (the capture
// page, the bot) can stop polling. Implementations must not block.
type Notifier interface {
	SessionResolved(s *database.VerificationSession)
}

// Orchestrator coordinates verification sessions against the store. The
// wall-clock deadline is authoritative: every read re-checks it, so a
// session reads as expired the moment its TTL passes even if no sweep has
// run yet.
type Orchestrator struct {
	store    database.SessionStore
	ttl      time.Duration
	notifier Notifier
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator with the given session TTL.
func NewOrchestrator(store database.SessionStore, ttl time.Duration) *Orchestrator {
	return &Orchestrator{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetNotifier registers a resolution notifier. Optional.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

func validPurpose(purpose string) bool {
	switch purpose {
	case database.PurposeAdmin, database.PurposeVote, database.PurposeVoterRegistration:
		return true
	}
	return false
}

// Create opens a new pending session for the given user and purpose.
// ElectionID is required for vote sessions and ignored otherwise.
func (o *Orchestrator) Create(ctx context.Context, userID, purpose, electionID string) (*database.VerificationSession, error) {
	if !validPurpose(purpose) {
		return nil, fmt.Errorf("invalid session purpose %q", purpose)
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	now := o.now()
	s := &database.VerificationSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		Status:    database.SessionPending,
		CreatedAt: now,
		ExpiresAt: now.Add(o.ttl),
	}
	if purpose == database.PurposeVote {
		if electionID == "" {
			return nil, errors.New("election id is required for vote sessions")
		}
		s.ElectionID = electionID
	}

	if err := o.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Poll returns the current state of a session. A pending session past its
// deadline is reported (and persisted) as expired; polling is idempotent
// and never changes a terminal state.
func (o *Orchestrator) Poll(ctx context.Context, id string) (*database.VerificationSession, error) {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Status == database.SessionPending && s.IsExpired(o.now()) {
		// Persist lazily; a concurrent completion that beat us to the
		// terminal state wins and we report whatever the store holds.
		if err := o.store.MarkExpired(ctx, s.ID); err != nil {
			if errors.Is(err, database.ErrSessionAlreadyResolved) {
				return o.store.Get(ctx, id)
			}
			return nil, fmt.Errorf("failed to expire session: %w", err)
		}
		s.Status = database.SessionExpired
		o.resolved(s)
	}
	return s, nil
}

// Complete resolves a pending session with the verification outcome.
// Exactly one completion succeeds; later attempts get
// ErrSessionAlreadyResolved and an attempt after the deadline gets
// ErrSessionExpired without recording the outcome.
func (o *Orchestrator) Complete(ctx context.Context, id string, outcome database.Outcome) error {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}

	switch s.Status {
	case database.SessionCompleted, database.SessionExpired:
		return database.ErrSessionAlreadyResolved
	}

	if s.IsExpired(o.now()) {
		if err := o.store.MarkExpired(ctx, s.ID); err != nil && !errors.Is(err, database.ErrSessionAlreadyResolved) {
			return fmt.Errorf("failed to expire session: %w", err)
		}
		return database.ErrSessionExpired
	}

	if err := o.store.Complete(ctx, id, outcome); err != nil {
		return err
	}

	s.Status = database.SessionCompleted
	s.Result = &outcome
	o.resolved(s)
	return nil
}

// Consume redeems a completed, verified session for its one privileged
// action. A session can be consumed at most once.
func (o *Orchestrator) Consume(ctx context.Context, id string) (*database.Outcome, error) {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Status == database.SessionPending && s.IsExpired(o.now()) {
		return nil, database.ErrSessionExpired
	}
	if s.Status == database.SessionExpired {
		return nil, database.ErrSessionExpired
	}
	if s.Status != database.SessionCompleted {
		return nil, database.ErrSessionNotCompleted
	}
	if s.Result == nil || !s.Result.Verified {
		return nil, database.ErrNoMatch
	}
	if s.Consumed {
		return nil, database.ErrSessionAlreadyResolved
	}

	if err := o.store.MarkConsumed(ctx, id); err != nil {
		return nil, err
	}
	return s.Result, nil
}

// StartSweeper runs periodic expiry of overdue sessions until the context
// is canceled. The sweep is cleanup only; readers never depend on it.
func (o *Orchestrator) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := o.store.ExpireOverdue(ctx, o.now())
				if err != nil {
					log.Printf("session sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("session sweep expired %d sessions", n)
				}
			}
		}
	}()
}

func (o *Orchestrator) resolved(s *database.VerificationSession) {
	if o.notifier != nil {
		o.notifier.SessionResolved(s)
	}
}
