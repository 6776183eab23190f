package database

import "errors"

// Sentinel errors shared across storage backends and services. Handlers map
// these to distinct user-visible outcomes; anything else is a storage error.
var (
	// ErrNoFaceDetected indicates the face engine found zero face regions.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrEmbedding indicates the face engine failed to produce an embedding.
	ErrEmbedding = errors.New("embedding failed")

	// ErrNoMatch indicates no stored encoding was within the match threshold.
	ErrNoMatch = errors.New("no matching identity")

	// ErrSessionNotFound indicates an unknown verification session ID.
	ErrSessionNotFound = errors.New("verification session not found")

	// ErrSessionExpired indicates the session deadline has passed.
	ErrSessionExpired = errors.New("verification session expired")

	// ErrSessionAlreadyResolved indicates a completion attempt on a session
	// that already reached a terminal state. The first write wins.
	ErrSessionAlreadyResolved = errors.New("verification session already resolved")

	// ErrSessionNotCompleted indicates a redeem attempt on a session that is
	// still pending.
	ErrSessionNotCompleted = errors.New("verification session not completed")

	// ErrAlreadyVoted indicates the (voter, election, position) uniqueness
	// constraint rejected a vote insert.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrElectionNotActive indicates a vote attempt outside the election's
	// voting window.
	ErrElectionNotActive = errors.New("election is not active")

	// ErrResultsNotAvailable indicates a results request for an election
	// that has not ended yet.
	ErrResultsNotAvailable = errors.New("results are not available until the election ends")

	// ErrVoterNotRegistered indicates a verified identity that is absent
	// from the voter roll.
	ErrVoterNotRegistered = errors.New("voter not registered")

	// ErrNotFound is the generic missing-record error for lookups.
	ErrNotFound = errors.New("record not found")
)
