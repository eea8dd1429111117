package docprovider

import (
	"context"
	"fmt"
	"strings"
)

// Fake is an in-memory Provider for tests, grounded on the teacher's
// pkg/mcp/testing.go fake-server pattern: a hand-populated stand-in for
// an external dependency that exercises the same interface as the real
// client without a live process behind it.
type Fake struct {
	Docs map[string]FakeDoc // keyed by ExternalID

	// FetchErr optionally overrides FetchText's result for an
	// ExternalID regardless of Docs, so a test can simulate a
	// document that still shows up in ListDocuments but has been
	// removed upstream by the time FetchText runs.
	FetchErr map[string]error
}

// FakeDoc is a fake document with its listing metadata and full text.
type FakeDoc struct {
	Meta DocumentMeta
	Text string
}

// NewFake constructs an empty Fake provider.
func NewFake() *Fake {
	return &Fake{Docs: make(map[string]FakeDoc), FetchErr: make(map[string]error)}
}

// Add registers a fake document.
func (f *Fake) Add(doc FakeDoc) {
	f.Docs[doc.Meta.ExternalID] = doc
}

func (f *Fake) ListDocuments(ctx context.Context, rootFolderID string, contextOnly bool) ([]DocumentMeta, error) {
	var out []DocumentMeta
	for _, d := range f.Docs {
		if contextOnly && !strings.Contains(d.Meta.FolderPath, "context") {
			continue
		}
		out = append(out, d.Meta)
	}
	return out, nil
}

func (f *Fake) FetchText(ctx context.Context, externalID string, kind MimeKind) (string, error) {
	if err, ok := f.FetchErr[externalID]; ok {
		return "", err
	}
	d, ok := f.Docs[externalID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, externalID)
	}
	return d.Text, nil
}

var _ Provider = (*Fake)(nil)
