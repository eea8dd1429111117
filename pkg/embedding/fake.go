package embedding

import (
	"context"
	"errors"
	"hash/fnv"
)

// Fake is a deterministic Embedder for tests: the same text always
// produces the same vector, derived from a hash of the text rather
// than a real model, and optional per-text errors simulate permanent
// embedding failures.
type Fake struct {
	Dim    int
	Fail   map[string]error // keyed by exact text
	Calls  []string
}

// NewFake constructs a Fake with the given vector dimension.
func NewFake(dim int) *Fake {
	return &Fake{Dim: dim, Fail: make(map[string]error)}
}

func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	f.Calls = append(f.Calls, text)
	if err, ok := f.Fail[text]; ok {
		return nil, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, f.Dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%2000)/1000 - 1
	}
	return vec, nil
}

// ErrPermanent is a convenience sentinel for tests wiring up Fail.
var ErrPermanent = errors.New("fake embedding: permanent failure")

var _ Embedder = (*Fake)(nil)
