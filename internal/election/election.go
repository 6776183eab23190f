// Package election manages elections, candidates and result tallies.
// Election status is always derived from the voting window at read time;
// there is no stored status to drift out of date.
package election

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/facematch"
)

// View is an election with its time-derived status attached.
type View struct {
	database.Election
	Status string `json:"status"`
}

// Service implements election management on top of the stores.
type Service struct {
	elections  database.ElectionStore
	candidates database.CandidateStore
	votes      database.VoteStore
	now        func() time.Time
}

// NewService creates an election service.
func NewService(elections database.ElectionStore, candidates database.CandidateStore, votes database.VoteStore) *Service {
	return &Service{
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		now:        time.Now,
	}
}

// Create validates and stores a new election.
func (s *Service) Create(ctx context.Context, title string, start, end time.Time) (*database.Election, error) {
	if title == "" {
		return nil, errors.New("election title is required")
	}
	if !end.After(start) {
		return nil, errors.New("election end time must be after start time")
	}

	e := &database.Election{
		ID:        uuid.NewString(),
		Title:     title,
		StartTime: start,
		EndTime:   end,
		CreatedAt: s.now(),
	}
	if err := s.elections.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create election: %w", err)
	}
	return e, nil
}

// Get returns an election with its current status.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	e, err := s.elections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{Election: *e, Status: e.StatusAt(s.now())}, nil
}

// List returns all elections with current statuses.
func (s *Service) List(ctx context.Context) ([]View, error) {
	elections, err := s.elections.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]View, len(elections))
	for i, e := range elections {
		views[i] = View{Election: e, Status: e.StatusAt(now)}
	}
	return views, nil
}

// ListActive returns elections currently inside their voting window.
func (s *Service) ListActive(ctx context.Context) ([]View, error) {
	now := s.now()
	elections, err := s.elections.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(elections))
	for i, e := range elections {
		views[i] = View{Election: e, Status: database.ElectionActive}
	}
	return views, nil
}

// AddCandidate registers a candidate for a position in an election. New
// candidates can only be added before the election starts.
func (s *Service) AddCandidate(ctx context.Context, electionID, name, position, imagePath string) (*database.Candidate, error) {
	if name == "" || position == "" {
		return nil, errors.New("candidate name and position are required")
	}

	e, err := s.elections.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if e.StatusAt(s.now()) != database.ElectionPending {
		return nil, errors.New("candidates can only be added before the election starts")
	}

	// Reject the same person twice for the same position regardless of
	// casing or accents.
	existing, err := s.candidates.ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if facematch.NormalizeName(c.Name) == facematch.NormalizeName(name) &&
			facematch.NormalizeName(c.Position) == facematch.NormalizeName(position) {
			return nil, fmt.Errorf("candidate %q already runs for %q", name, position)
		}
	}

	c := &database.Candidate{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		Name:       name,
		Position:   position,
		ImagePath:  imagePath,
		CreatedAt:  s.now(),
	}
	if err := s.candidates.Add(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to add candidate: %w", err)
	}
	return c, nil
}

// Candidates returns the candidates of an election.
func (s *Service) Candidates(ctx context.Context, electionID string) ([]database.Candidate, error) {
	if _, err := s.elections.Get(ctx, electionID); err != nil {
		return nil, err
	}
	return s.candidates.ListByElection(ctx, electionID)
}

// Results tallies votes per candidate, including zero-vote candidates.
// Results are only available once the election has ended.
func (s *Service) Results(ctx context.Context, electionID string) ([]database.VoteCount, error) {
	e, err := s.elections.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if e.StatusAt(s.now()) != database.ElectionEnded {
		return nil, database.ErrResultsNotAvailable
	}

	candidates, err := s.candidates.ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	counts, err := s.votes.CountByCandidate(ctx, electionID)
	if err != nil {
		return nil, err
	}

	byCandidate := make(map[string]int, len(counts))
	for _, c := range counts {
		byCandidate[c.CandidateID] = c.Count
	}

	results := make([]database.VoteCount, len(candidates))
	for i, c := range candidates {
		results[i] = database.VoteCount{
			CandidateID: c.ID,
			Name:        c.Name,
			Position:    c.Position,
			Count:       byCandidate[c.ID],
		}
	}
	// Order by position, then descending count, then name for stable ties.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	return results, nil
}
