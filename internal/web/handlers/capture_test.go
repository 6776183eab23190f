package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facevote/internal/database"
)

func captureRequest(t *testing.T, env *testEnv, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewCaptureHandler(env.orchestrator, env.verifier, env.voters, testMessages())

	body, contentType := multipartFrame(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/capture", body)
	req.Header.Set("Content-Type", contentType)
	req = requestWithChiParams(req, map[string]string{"id": sessionID})

	recorder := httptest.NewRecorder()
	handler.Submit(recorder, req)
	return recorder
}

func TestCaptureIdentifiesEnrolledVoter(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Verified {
		t.Fatal("expected frame to verify")
	}
	if resp.Message != "verified" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	stored, err := env.sessions.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Status != database.SessionCompleted {
		t.Errorf("expected completed session, got %q", stored.Status)
	}
	if stored.Result == nil || stored.Result.Matric != "STU001" {
		t.Errorf("unexpected result %+v", stored.Result)
	}
}

func TestCaptureNoFaceCompletesRejected(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	env.engine.noFace = true
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Verified {
		t.Fatal("expected rejection for a frame without a face")
	}
	if resp.Message != "rejected" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	stored, _ := env.sessions.Get(context.Background(), s.ID)
	if stored.Status != database.SessionCompleted {
		t.Errorf("expected completed session, got %q", stored.Status)
	}
}

func TestCaptureUnknownFaceCompletesRejected(t *testing.T) {
	env := newTestEnv(t)
	// No voters enrolled; any face is a stranger.
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Verified {
		t.Fatal("expected rejection for an unknown face")
	}
}

func TestCaptureEngineOutageCompletesRejected(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	env.engine.err = errors.New("connection refused")
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Verified {
		t.Fatal("engine outage must not verify anyone")
	}
}

func TestCaptureExpiredSessionConflicts(t *testing.T) {
	env := newTestEnv(t)
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")
	if err := env.sessions.MarkExpired(context.Background(), s.ID); err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "expired")
}

func TestCaptureSecondFrameConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.enrollVoter(t, "STU001")
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")

	first := captureRequest(t, env, s.ID)
	assertStatusCode(t, first, http.StatusOK)

	second := captureRequest(t, env, s.ID)
	assertStatusCode(t, second, http.StatusConflict)
	assertJSONError(t, second, "session already resolved")
}

func TestCaptureMissingFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.pendingSession(t, database.PurposeVote, "chat-42", "e-1")
	handler := NewCaptureHandler(env.orchestrator, env.verifier, env.voters, testMessages())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+s.ID+"/capture", nil)
	req = requestWithChiParams(req, map[string]string{"id": s.ID})
	recorder := httptest.NewRecorder()
	handler.Submit(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestCaptureRegistersVoter(t *testing.T) {
	env := newTestEnv(t)
	s := env.pendingSession(t, database.PurposeVoterRegistration, "stu002", "")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Verified {
		t.Fatal("expected registration to succeed")
	}
	if resp.Message != "register done" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	ctx := context.Background()
	exists, err := env.voters.Exists(ctx, "STU002")
	if err != nil || !exists {
		t.Errorf("expected STU002 on the voter roll, exists=%v err=%v", exists, err)
	}
	enc, err := env.encodings.Get(ctx, database.EncodingVoter, "STU002")
	if err != nil {
		t.Fatalf("expected stored encoding: %v", err)
	}
	if enc.Dim != len(env.engine.embedding) {
		t.Errorf("unexpected encoding dim %d", enc.Dim)
	}
}

func TestCaptureVerifiesAdminOneToOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	err := env.encodings.Save(ctx, database.StoredEncoding{
		Identity:  "chat-42",
		Kind:      database.EncodingAdmin,
		Embedding: append([]float32(nil), env.engine.embedding...),
		Dim:       len(env.engine.embedding),
	})
	if err != nil {
		t.Fatalf("failed to save admin encoding: %v", err)
	}

	s := env.pendingSession(t, database.PurposeAdmin, "chat-42", "")
	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Verified {
		t.Fatal("expected admin verification to succeed")
	}
}

func TestCaptureAdminWithoutEnrolledFaceRejected(t *testing.T) {
	env := newTestEnv(t)
	s := env.pendingSession(t, database.PurposeAdmin, "chat-42", "")

	recorder := captureRequest(t, env, s.ID)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp captureResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Verified {
		t.Fatal("admin without an enrolled face must not verify")
	}
}
