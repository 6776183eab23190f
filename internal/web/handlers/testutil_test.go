package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/database/mock"
	"github.com/kozaktomas/facevote/internal/election"
	"github.com/kozaktomas/facevote/internal/faceengine"
	"github.com/kozaktomas/facevote/internal/facematch"
	"github.com/kozaktomas/facevote/internal/ledger"
	"github.com/kozaktomas/facevote/internal/session"
)

// testMessages creates distinct user-facing strings so tests can tell which
// branch produced a response.
func testMessages() config.MessagesConfig {
	return config.MessagesConfig{
		Verified:       "verified",
		Rejected:       "rejected",
		Expired:        "expired",
		NotFound:       "not found",
		InProgress:     "in progress",
		AlreadyVoted:   "already voted",
		NotRegistered:  "not registered",
		VoteSubmitted:  "vote submitted",
		RegisterDone:   "register done",
		RegisterFailed: "register failed",
	}
}

// fakeEngine returns a fixed embedding for every frame, or fails on demand.
type fakeEngine struct {
	embedding []float32
	noFace    bool
	err       error
}

func (f *fakeEngine) DetectFaces(ctx context.Context, imageData []byte) (*faceengine.FaceResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.noFace {
		return &faceengine.FaceResponse{FacesCount: 0}, nil
	}
	return &faceengine.FaceResponse{
		FacesCount: 1,
		Faces: []faceengine.FaceDetection{
			{FaceIndex: 0, Dim: len(f.embedding), Embedding: f.embedding, DetScore: 0.99},
		},
	}, nil
}

// testEnv wires handlers against in-memory stores.
type testEnv struct {
	engine     *fakeEngine
	encodings  *mock.MockEncodingStore
	sessions   *mock.MockSessionStore
	votes      *mock.MockVoteStore
	voters     *mock.MockVoterStore
	admins     *mock.MockAdminStore
	elections  *mock.MockElectionStore
	candidates *mock.MockCandidateStore
	reports    *mock.MockReportStore

	verifier     *facematch.Verifier
	orchestrator *session.Orchestrator
	ledger       *ledger.Ledger
	electionSvc  *election.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		engine:     &fakeEngine{embedding: []float32{1, 0, 0}},
		encodings:  mock.NewMockEncodingStore(),
		sessions:   mock.NewMockSessionStore(),
		votes:      mock.NewMockVoteStore(),
		voters:     mock.NewMockVoterStore(),
		admins:     mock.NewMockAdminStore(),
		elections:  mock.NewMockElectionStore(),
		candidates: mock.NewMockCandidateStore(),
		reports:    mock.NewMockReportStore(),
	}

	env.verifier = facematch.NewVerifier(env.engine, env.encodings, 0.4)
	env.orchestrator = session.NewOrchestrator(env.sessions, 10*time.Minute)
	env.ledger = ledger.New(env.votes, env.elections, env.candidates, env.voters, 16)
	env.electionSvc = election.NewService(env.elections, env.candidates, env.votes)

	return env
}

// enrollVoter seeds a voter with a face encoding that matches the fake
// engine's embedding exactly.
func (env *testEnv) enrollVoter(t *testing.T, matric string) {
	t.Helper()
	ctx := context.Background()
	if err := env.voters.Add(ctx, matric); err != nil {
		t.Fatalf("failed to add voter: %v", err)
	}
	err := env.encodings.Save(ctx, database.StoredEncoding{
		Identity:  matric,
		Kind:      database.EncodingVoter,
		Embedding: append([]float32(nil), env.engine.embedding...),
		Dim:       len(env.engine.embedding),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to save encoding: %v", err)
	}
	if err := env.verifier.Reload(ctx); err != nil {
		t.Fatalf("failed to reload verifier: %v", err)
	}
}

// pendingSession creates a pending session directly in the store.
func (env *testEnv) pendingSession(t *testing.T, purpose, userID, electionID string) *database.VerificationSession {
	t.Helper()
	s, err := env.orchestrator.Create(context.Background(), userID, purpose, electionID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

// activeElection seeds an election whose window contains now, with one
// candidate per given position.
func (env *testEnv) activeElection(t *testing.T, positions ...string) (*database.Election, []database.Candidate) {
	t.Helper()
	ctx := context.Background()
	e := &database.Election{
		ID:        "e-1",
		Title:     "Student Union Election",
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := env.elections.Create(ctx, e); err != nil {
		t.Fatalf("failed to create election: %v", err)
	}

	var candidates []database.Candidate
	for i, pos := range positions {
		c := &database.Candidate{
			ID:         "c-" + pos,
			ElectionID: e.ID,
			Name:       "Candidate " + pos,
			Position:   pos,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := env.candidates.Add(ctx, c); err != nil {
			t.Fatalf("failed to add candidate: %v", err)
		}
		candidates = append(candidates, *c)
	}
	return e, candidates
}

// jpegFrame encodes a small solid image as JPEG.
func jpegFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 140, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartFrame builds a multipart body with the test image under "file".
func multipartFrame(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "capture.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(jpegFrame(t)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()
	return &body, writer.FormDataContentType()
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
