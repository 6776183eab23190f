// Package facematch implements face identity decisions: 1:N voter
// identification against the enrolled roll and 1:1 admin verification.
package facematch

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/faceengine"
)

// Engine abstracts the face engine client so tests can stub detection.
type Engine interface {
	DetectFaces(ctx context.Context, imageData []byte) (*faceengine.FaceResponse, error)
}

// Match is a successful identity decision.
type Match struct {
	Identity string
	Distance float64
}

// Verifier makes match/no-match decisions against stored encodings. All
// decisions use cosine distance with a strictly-less-than threshold: a
// probe at exactly the threshold does not match.
type Verifier struct {
	engine    Engine
	store     database.EncodingStore
	index     *database.EncodingIndex
	threshold float64
}

// NewVerifier creates a verifier. The index starts empty; call Reload to
// populate it from the store.
func NewVerifier(engine Engine, store database.EncodingStore, threshold float64) *Verifier {
	return &Verifier{
		engine:    engine,
		store:     store,
		index:     database.NewEncodingIndex(),
		threshold: threshold,
	}
}

// Reload rebuilds the in-memory voter index from the store. Called at
// startup and after bulk enrollment.
func (v *Verifier) Reload(ctx context.Context) error {
	encodings, err := v.store.List(ctx, database.EncodingVoter)
	if err != nil {
		return fmt.Errorf("failed to load voter encodings: %w", err)
	}
	v.index.Build(encodings)
	return nil
}

// IndexSize returns the number of enrolled voter encodings in memory.
func (v *Verifier) IndexSize() int {
	return v.index.Count()
}

// Probe runs detection on a capture and returns the embedding of the most
// confident face. Returns ErrNoFaceDetected when the engine finds no face
// and ErrEmbedding when the engine call itself fails.
func (v *Verifier) Probe(ctx context.Context, imageData []byte) ([]float32, error) {
	prepared, err := faceengine.PrepareCapture(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrEmbedding, err)
	}

	resp, err := v.engine.DetectFaces(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrEmbedding, err)
	}

	best := faceengine.MostConfident(resp.Faces)
	if best == nil || len(best.Embedding) == 0 {
		return nil, database.ErrNoFaceDetected
	}
	return best.Embedding, nil
}

// MatchVoter identifies the capture against the enrolled voter roll and
// returns the closest enrolled voter when the distance clears the
// threshold, ErrNoMatch otherwise.
func (v *Verifier) MatchVoter(ctx context.Context, imageData []byte) (*Match, error) {
	probe, err := v.Probe(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return v.matchProbe(ctx, probe)
}

func (v *Verifier) matchProbe(ctx context.Context, probe []float32) (*Match, error) {
	if v.index.IsEmpty() {
		// Index not built yet (fresh start, empty roll); go straight to
		// the store so a cold cache never rejects an enrolled voter.
		return v.matchFromStore(ctx, probe)
	}

	ids, distances, err := v.index.Nearest(probe, 1)
	if err != nil || len(ids) == 0 {
		return v.matchFromStore(ctx, probe)
	}

	if distances[0] < v.threshold {
		return &Match{Identity: ids[0], Distance: distances[0]}, nil
	}
	return nil, database.ErrNoMatch
}

func (v *Verifier) matchFromStore(ctx context.Context, probe []float32) (*Match, error) {
	encodings, distances, err := v.store.FindNearest(ctx, database.EncodingVoter, probe, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search encodings: %w", err)
	}
	if len(encodings) == 0 {
		return nil, database.ErrNoMatch
	}
	if distances[0] < v.threshold {
		return &Match{Identity: encodings[0].Identity, Distance: distances[0]}, nil
	}
	return nil, database.ErrNoMatch
}

// MatchAdmin verifies the capture against one specific admin's stored
// encoding. Returns ErrNotFound when the admin has no enrolled face.
func (v *Verifier) MatchAdmin(ctx context.Context, chatID string, imageData []byte) (*Match, error) {
	probe, err := v.Probe(ctx, imageData)
	if err != nil {
		return nil, err
	}

	enc, err := v.store.Get(ctx, database.EncodingAdmin, chatID)
	if err != nil {
		return nil, err
	}

	d := database.CosineDistance(probe, enc.Embedding)
	if d < v.threshold {
		return &Match{Identity: chatID, Distance: d}, nil
	}
	return nil, database.ErrNoMatch
}

// RegisterVoter enrolls or re-enrolls a voter face. An existing encoding
// for the matric is overwritten, in store and index both.
func (v *Verifier) RegisterVoter(ctx context.Context, matric string, imageData []byte) error {
	return v.register(ctx, database.EncodingVoter, NormalizeIdentity(matric), imageData)
}

// RegisterAdmin enrolls or re-enrolls an admin face keyed by chat ID.
func (v *Verifier) RegisterAdmin(ctx context.Context, chatID string, imageData []byte) error {
	return v.register(ctx, database.EncodingAdmin, chatID, imageData)
}

func (v *Verifier) register(ctx context.Context, kind, identity string, imageData []byte) error {
	probe, err := v.Probe(ctx, imageData)
	if err != nil {
		return err
	}

	enc := database.StoredEncoding{
		Identity:  identity,
		Kind:      kind,
		Embedding: probe,
		Dim:       len(probe),
	}
	if err := v.store.Save(ctx, enc); err != nil {
		return fmt.Errorf("failed to save encoding: %w", err)
	}
	if kind == database.EncodingVoter {
		v.index.Add(&enc)
	}
	return nil
}
