package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facevote/internal/database"
)

func votesHandlerFor(env *testEnv) *VotesHandler {
	return NewVotesHandler(env.orchestrator, env.ledger, testMessages())
}

// verifiedVoteSession creates a vote session already completed as verified
// for the given matric.
func verifiedVoteSession(t *testing.T, env *testEnv, matric, electionID string) *database.VerificationSession {
	t.Helper()
	s := env.pendingSession(t, database.PurposeVote, "chat-42", electionID)
	err := env.orchestrator.Complete(context.Background(), s.ID, database.Outcome{Verified: true, Matric: matric})
	if err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}
	return s
}

func castVote(t *testing.T, env *testEnv, sessionID string, candidateIDs []string) *httptest.ResponseRecorder {
	t.Helper()
	handler := votesHandlerFor(env)
	req := jsonRequest(t, http.MethodPost, "/api/v1/votes", castVoteRequest{
		SessionID:    sessionID,
		CandidateIDs: candidateIDs,
	})
	recorder := httptest.NewRecorder()
	handler.Cast(recorder, req)
	return recorder
}

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	e, candidates := env.activeElection(t, "president", "secretary")
	s := verifiedVoteSession(t, env, "STU001", e.ID)

	recorder := castVote(t, env, s.ID, []string{candidates[0].ID, candidates[1].ID})
	assertStatusCode(t, recorder, http.StatusCreated)

	var resp castVoteResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Matric != "STU001" {
		t.Errorf("unexpected matric %q", resp.Matric)
	}
	if len(resp.Receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(resp.Receipts))
	}
	for _, r := range resp.Receipts {
		if len(r.Receipt) != 16 {
			t.Errorf("expected 16-char receipt, got %q", r.Receipt)
		}
	}
	if resp.Message != "vote submitted" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	voted, err := env.ledger.HasVoted(context.Background(), "STU001", e.ID)
	if err != nil || !voted {
		t.Errorf("expected recorded ballot, voted=%v err=%v", voted, err)
	}
}

func TestCastVoteSessionSpentAfterUse(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	e, candidates := env.activeElection(t, "president")
	s := verifiedVoteSession(t, env, "STU001", e.ID)

	first := castVote(t, env, s.ID, []string{candidates[0].ID})
	assertStatusCode(t, first, http.StatusCreated)

	second := castVote(t, env, s.ID, []string{candidates[0].ID})
	assertStatusCode(t, second, http.StatusConflict)
	assertJSONError(t, second, "session already used")
}

func TestCastVoteRejectsDoubleVote(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	e, candidates := env.activeElection(t, "president")

	s1 := verifiedVoteSession(t, env, "STU001", e.ID)
	first := castVote(t, env, s1.ID, []string{candidates[0].ID})
	assertStatusCode(t, first, http.StatusCreated)

	// Verifying again grants a fresh session, not a fresh ballot.
	s2 := verifiedVoteSession(t, env, "STU001", e.ID)
	second := castVote(t, env, s2.ID, []string{candidates[0].ID})
	assertStatusCode(t, second, http.StatusConflict)
	assertJSONError(t, second, "already voted")
}

func TestCastVotePendingSessionConflicts(t *testing.T) {
	env := newTestEnv(t)
	e, candidates := env.activeElection(t, "president")
	s := env.pendingSession(t, database.PurposeVote, "chat-42", e.ID)

	recorder := castVote(t, env, s.ID, []string{candidates[0].ID})
	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "in progress")
}

func TestCastVoteUnverifiedSessionForbidden(t *testing.T) {
	env := newTestEnv(t)
	e, candidates := env.activeElection(t, "president")
	s := env.pendingSession(t, database.PurposeVote, "chat-42", e.ID)
	err := env.orchestrator.Complete(context.Background(), s.ID, database.Outcome{Verified: false})
	if err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}

	recorder := castVote(t, env, s.ID, []string{candidates[0].ID})
	assertStatusCode(t, recorder, http.StatusForbidden)
	assertJSONError(t, recorder, "rejected")
}

func TestCastVoteWrongPurposeRejected(t *testing.T) {
	env := newTestEnv(t)
	env.activeElection(t, "president")
	s := env.pendingSession(t, database.PurposeAdmin, "chat-42", "")
	err := env.orchestrator.Complete(context.Background(), s.ID, database.Outcome{Verified: true, Matric: "chat-42"})
	if err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}

	recorder := castVote(t, env, s.ID, []string{"c-president"})
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestCastVoteUnregisteredVoterForbidden(t *testing.T) {
	env := newTestEnv(t)
	// Face matched but the matric never made it onto the roll.
	e, candidates := env.activeElection(t, "president")
	s := verifiedVoteSession(t, env, "STU999", e.ID)

	recorder := castVote(t, env, s.ID, []string{candidates[0].ID})
	assertStatusCode(t, recorder, http.StatusForbidden)
	assertJSONError(t, recorder, "not registered")
}

func TestCastVoteValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := votesHandlerFor(env)

	req := jsonRequest(t, http.MethodPost, "/api/v1/votes", castVoteRequest{})
	recorder := httptest.NewRecorder()
	handler.Cast(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
