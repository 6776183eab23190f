// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/facevote/internal/database"
)

// MockEncodingStore is a mock implementation of database.EncodingStore
type MockEncodingStore struct {
	mu        sync.RWMutex
	encodings map[string]database.StoredEncoding // keyed by kind/identity

	// Error injection
	SaveError        error
	GetError         error
	ListError        error
	CountError       error
	FindNearestError error
}

// NewMockEncodingStore creates a new mock encoding store
func NewMockEncodingStore() *MockEncodingStore {
	return &MockEncodingStore{
		encodings: make(map[string]database.StoredEncoding),
	}
}

func encodingKey(kind, identity string) string { return kind + "/" + identity }

// Save stores an encoding, replacing any existing one for the identity
func (m *MockEncodingStore) Save(ctx context.Context, enc database.StoredEncoding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if enc.CreatedAt.IsZero() {
		enc.CreatedAt = time.Now()
	}
	m.encodings[encodingKey(enc.Kind, enc.Identity)] = enc
	return nil
}

// Get retrieves the encoding for an identity
func (m *MockEncodingStore) Get(ctx context.Context, kind, identity string) (*database.StoredEncoding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	enc, ok := m.encodings[encodingKey(kind, identity)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &enc, nil
}

// List returns all encodings of a kind
func (m *MockEncodingStore) List(ctx context.Context, kind string) ([]database.StoredEncoding, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.StoredEncoding
	for _, enc := range m.encodings {
		if enc.Kind == kind {
			result = append(result, enc)
		}
	}
	return result, nil
}

// Count returns the number of encodings of a kind
func (m *MockEncodingStore) Count(ctx context.Context, kind string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, enc := range m.encodings {
		if enc.Kind == kind {
			count++
		}
	}
	return count, nil
}

// FindNearest returns encodings of a kind ordered by cosine distance
func (m *MockEncodingStore) FindNearest(ctx context.Context, kind string, embedding []float32, limit int) ([]database.StoredEncoding, []float64, error) {
	if m.FindNearestError != nil {
		return nil, nil, m.FindNearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		enc  database.StoredEncoding
		dist float64
	}
	var all []scored
	for _, enc := range m.encodings {
		if enc.Kind != kind {
			continue
		}
		all = append(all, scored{enc, database.CosineDistance(embedding, enc.Embedding)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > limit {
		all = all[:limit]
	}

	encs := make([]database.StoredEncoding, len(all))
	dists := make([]float64, len(all))
	for i, s := range all {
		encs[i] = s.enc
		dists[i] = s.dist
	}
	return encs, dists, nil
}

// MockSessionStore is a mock implementation of database.SessionStore
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*database.VerificationSession

	// Error injection
	CreateError       error
	GetError          error
	CompleteError     error
	MarkExpiredError  error
	MarkConsumedError error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*database.VerificationSession),
	}
}

// Create stores a new pending session
func (m *MockSessionStore) Create(ctx context.Context, s *database.VerificationSession) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

// Get retrieves a session by ID
func (m *MockSessionStore) Get(ctx context.Context, id string) (*database.VerificationSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrSessionNotFound
	}
	clone := *s
	if s.Result != nil {
		result := *s.Result
		clone.Result = &result
	}
	return &clone, nil
}

// Complete records the terminal outcome of a pending session. The
// pending-only guard is checked under the lock so concurrent completion
// attempts resolve first-write-wins.
func (m *MockSessionStore) Complete(ctx context.Context, id string, outcome database.Outcome) error {
	if m.CompleteError != nil {
		return m.CompleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrSessionNotFound
	}
	if s.Status != database.SessionPending {
		return database.ErrSessionAlreadyResolved
	}
	s.Status = database.SessionCompleted
	s.Result = &outcome
	return nil
}

// MarkExpired flips a pending session to expired
func (m *MockSessionStore) MarkExpired(ctx context.Context, id string) error {
	if m.MarkExpiredError != nil {
		return m.MarkExpiredError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrSessionNotFound
	}
	if s.Status != database.SessionPending {
		return database.ErrSessionAlreadyResolved
	}
	s.Status = database.SessionExpired
	return nil
}

// MarkConsumed records that a completed session has been redeemed
func (m *MockSessionStore) MarkConsumed(ctx context.Context, id string) error {
	if m.MarkConsumedError != nil {
		return m.MarkConsumedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrSessionNotFound
	}
	if s.Status != database.SessionCompleted || s.Consumed {
		return database.ErrSessionAlreadyResolved
	}
	s.Consumed = true
	return nil
}

// ExpireOverdue marks all pending sessions past their deadline as expired
func (m *MockSessionStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.Status == database.SessionPending && s.IsExpired(now) {
			s.Status = database.SessionExpired
			n++
		}
	}
	return n, nil
}

// MockVoteStore is a mock implementation of database.VoteStore
type MockVoteStore struct {
	mu    sync.Mutex
	votes []database.Vote

	// Error injection
	HasVotedError error
	InsertError   error
	CountError    error
}

// NewMockVoteStore creates a new mock vote store
func NewMockVoteStore() *MockVoteStore {
	return &MockVoteStore{}
}

func voteKey(matric, electionID, position string) string {
	return matric + "/" + electionID + "/" + position
}

// HasVoted checks whether any vote exists for (matric, election)
func (m *MockVoteStore) HasVoted(ctx context.Context, matric, electionID string) (bool, error) {
	if m.HasVotedError != nil {
		return false, m.HasVotedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.Matric == matric && v.ElectionID == electionID {
			return true, nil
		}
	}
	return false, nil
}

// Insert stores a batch of votes atomically. A duplicate
// (matric, election, position) anywhere in the batch rejects the whole
// batch with ErrAlreadyVoted, mirroring the unique index in postgres.
func (m *MockVoteStore) Insert(ctx context.Context, votes []database.Vote) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]struct{}, len(m.votes))
	for _, v := range m.votes {
		existing[voteKey(v.Matric, v.ElectionID, v.Position)] = struct{}{}
	}
	for _, v := range votes {
		key := voteKey(v.Matric, v.ElectionID, v.Position)
		if _, dup := existing[key]; dup {
			return database.ErrAlreadyVoted
		}
		existing[key] = struct{}{}
	}

	m.votes = append(m.votes, votes...)
	return nil
}

// CountByCandidate tallies votes per candidate for an election
func (m *MockVoteStore) CountByCandidate(ctx context.Context, electionID string) ([]database.VoteCount, error) {
	if m.CountError != nil {
		return nil, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	var order []string
	for _, v := range m.votes {
		if v.ElectionID != electionID {
			continue
		}
		if _, ok := counts[v.CandidateID]; !ok {
			order = append(order, v.CandidateID)
		}
		counts[v.CandidateID]++
	}

	result := make([]database.VoteCount, 0, len(order))
	for _, id := range order {
		result = append(result, database.VoteCount{CandidateID: id, Count: counts[id]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result, nil
}

// Votes returns a copy of all stored votes
func (m *MockVoteStore) Votes() []database.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Vote, len(m.votes))
	copy(out, m.votes)
	return out
}

// MockVoterStore is a mock implementation of database.VoterStore
type MockVoterStore struct {
	mu     sync.RWMutex
	voters map[string]database.Voter

	// Error injection
	AddError    error
	ExistsError error
	ListError   error
}

// NewMockVoterStore creates a new mock voter store
func NewMockVoterStore() *MockVoterStore {
	return &MockVoterStore{voters: make(map[string]database.Voter)}
}

// Add registers a matric on the voter roll
func (m *MockVoterStore) Add(ctx context.Context, matric string) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.voters[matric]; !ok {
		m.voters[matric] = database.Voter{Matric: matric, RegisteredAt: time.Now()}
	}
	return nil
}

// Exists checks whether a matric is on the roll
func (m *MockVoterStore) Exists(ctx context.Context, matric string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.voters[matric]
	return ok, nil
}

// List returns the voter roll
func (m *MockVoterStore) List(ctx context.Context) ([]database.Voter, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Voter
	for _, v := range m.voters {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Matric < result[j].Matric })
	return result, nil
}

// MockAdminStore is a mock implementation of database.AdminStore
type MockAdminStore struct {
	mu     sync.RWMutex
	admins map[string]database.Admin

	// Error injection
	AddError    error
	RemoveError error
	ExistsError error
	ListError   error
}

// NewMockAdminStore creates a new mock admin store
func NewMockAdminStore() *MockAdminStore {
	return &MockAdminStore{admins: make(map[string]database.Admin)}
}

// Add registers an admin chat ID
func (m *MockAdminStore) Add(ctx context.Context, chatID string) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[chatID] = database.Admin{ChatID: chatID, RegisteredAt: time.Now()}
	return nil
}

// Remove deletes an admin
func (m *MockAdminStore) Remove(ctx context.Context, chatID string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.admins, chatID)
	return nil
}

// Exists checks whether a chat ID belongs to an admin
func (m *MockAdminStore) Exists(ctx context.Context, chatID string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.admins[chatID]
	return ok, nil
}

// List returns the admin roster
func (m *MockAdminStore) List(ctx context.Context) ([]database.Admin, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Admin
	for _, a := range m.admins {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChatID < result[j].ChatID })
	return result, nil
}

// MockElectionStore is a mock implementation of database.ElectionStore
type MockElectionStore struct {
	mu        sync.RWMutex
	elections map[string]*database.Election

	// Error injection
	CreateError error
	GetError    error
	ListError   error
}

// NewMockElectionStore creates a new mock election store
func NewMockElectionStore() *MockElectionStore {
	return &MockElectionStore{elections: make(map[string]*database.Election)}
}

// Create stores an election
func (m *MockElectionStore) Create(ctx context.Context, e *database.Election) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.elections[e.ID] = &clone
	return nil
}

// Get retrieves an election by ID
func (m *MockElectionStore) Get(ctx context.Context, id string) (*database.Election, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elections[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

// List returns all elections
func (m *MockElectionStore) List(ctx context.Context) ([]database.Election, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Election
	for _, e := range m.elections {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

// ListActive returns elections whose window contains now
func (m *MockElectionStore) ListActive(ctx context.Context, now time.Time) ([]database.Election, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Election
	for _, e := range m.elections {
		if e.StatusAt(now) == database.ElectionActive {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

// MockCandidateStore is a mock implementation of database.CandidateStore
type MockCandidateStore struct {
	mu         sync.RWMutex
	candidates map[string]*database.Candidate

	// Error injection
	AddError  error
	GetError  error
	ListError error
}

// NewMockCandidateStore creates a new mock candidate store
func NewMockCandidateStore() *MockCandidateStore {
	return &MockCandidateStore{candidates: make(map[string]*database.Candidate)}
}

// Add stores a candidate
func (m *MockCandidateStore) Add(ctx context.Context, c *database.Candidate) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.candidates[c.ID] = &clone
	return nil
}

// Get retrieves a candidate by ID
func (m *MockCandidateStore) Get(ctx context.Context, id string) (*database.Candidate, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

// ListByElection returns all candidates for an election
func (m *MockCandidateStore) ListByElection(ctx context.Context, electionID string) ([]database.Candidate, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Candidate
	for _, c := range m.candidates {
		if c.ElectionID == electionID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// MockReportStore is a mock implementation of database.ReportStore
type MockReportStore struct {
	mu      sync.RWMutex
	reports []database.Report

	// Error injection
	AddError  error
	ListError error
}

// NewMockReportStore creates a new mock report store
func NewMockReportStore() *MockReportStore {
	return &MockReportStore{}
}

// Add stores a report
func (m *MockReportStore) Add(ctx context.Context, r *database.Report) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *r)
	return nil
}

// List returns all reports
func (m *MockReportStore) List(ctx context.Context) ([]database.Report, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Report, len(m.reports))
	copy(out, m.reports)
	return out, nil
}

// Verify interface compliance
var _ database.EncodingStore = (*MockEncodingStore)(nil)
var _ database.SessionStore = (*MockSessionStore)(nil)
var _ database.VoteStore = (*MockVoteStore)(nil)
var _ database.VoterStore = (*MockVoterStore)(nil)
var _ database.AdminStore = (*MockAdminStore)(nil)
var _ database.ElectionStore = (*MockElectionStore)(nil)
var _ database.CandidateStore = (*MockCandidateStore)(nil)
var _ database.ReportStore = (*MockReportStore)(nil)
