// Package docprovider defines the narrow interface CommandCenter uses
// to talk to the external document store (named out of scope in
// spec.md §1 — "the document-provider API"). Only the surface pkg/kb
// needs is exposed: list documents under a root, and fetch full text.
package docprovider

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by FetchText when the document no longer
// exists upstream — e.g. it was removed between ListDocuments and the
// fetch. Callers distinguish this from other fetch failures so a
// document that was already synced gets sync_error=not_found instead
// of a generic failure message (spec.md §8 named boundary behavior).
var ErrNotFound = errors.New("document not found upstream")

// MimeKind classifies a document for extraction purposes (spec.md §3).
type MimeKind string

const (
	MimeDoc   MimeKind = "doc"
	MimePDF   MimeKind = "pdf"
	MimeSheet MimeKind = "sheet"
)

// DocumentMeta is the provider-side listing of a single document,
// before its text has been fetched.
type DocumentMeta struct {
	ExternalID string
	Title      string
	FolderPath string
	MimeKind   MimeKind
	ModifiedAt time.Time
}

// Provider is implemented by the external document store client.
type Provider interface {
	// ListDocuments enumerates documents under rootFolderID. If
	// contextOnly is true, results are restricted to the context
	// subfolder (spec.md §4.2 step 1).
	ListDocuments(ctx context.Context, rootFolderID string, contextOnly bool) ([]DocumentMeta, error)
	// FetchText returns the normalized plain-text content of a document.
	FetchText(ctx context.Context, externalID string, kind MimeKind) (string, error)
}
