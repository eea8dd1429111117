package telemetry

import (
	"context"
	"sync"
)

// FakeVendorClient is an in-memory VendorClient for tests: it returns
// scripted samples/errors in order, falling back to repeating the last
// entry once exhausted.
type FakeVendorClient struct {
	mu       sync.Mutex
	Samples  []Sample
	Errs     []error
	next     int
	FetchLog int
}

// NewFakeVendorClient builds a FakeVendorClient that yields samples in order.
func NewFakeVendorClient(samples ...Sample) *FakeVendorClient {
	return &FakeVendorClient{Samples: samples}
}

// FetchLatest implements VendorClient.
func (f *FakeVendorClient) FetchLatest(ctx context.Context) (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchLog++

	if f.next < len(f.Errs) && f.Errs[f.next] != nil {
		err := f.Errs[f.next]
		f.advance()
		return Sample{}, err
	}
	if len(f.Samples) == 0 {
		f.advance()
		return Sample{}, nil
	}
	idx := f.next
	if idx >= len(f.Samples) {
		idx = len(f.Samples) - 1
	}
	s := f.Samples[idx]
	f.advance()
	return s, nil
}

func (f *FakeVendorClient) advance() {
	if f.next < len(f.Samples) || f.next < len(f.Errs) {
		f.next++
	}
}
