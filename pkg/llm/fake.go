package llm

import "context"

// Fake is a scripted Client for tests: each call to Complete pops the
// next response off Responses, in order.
type Fake struct {
	Responses []CompletionResponse
	Requests  []CompletionRequest // records every request seen, for assertions
	next      int
}

// NewFake constructs a Fake that will return resp in sequence.
func NewFake(resp ...CompletionResponse) *Fake {
	return &Fake{Responses: resp}
}

func (f *Fake) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	f.Requests = append(f.Requests, req)
	if f.next >= len(f.Responses) {
		return CompletionResponse{Text: "no more scripted responses"}, nil
	}
	resp := f.Responses[f.next]
	f.next++
	return resp, nil
}

var _ Client = (*Fake)(nil)
