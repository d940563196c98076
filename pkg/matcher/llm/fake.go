package llm

import (
	"context"
	"sync"
)

// FakeClient is a scripted Client for tests that exercise the extractor
// and scorer without a network call. Replies are served in call order;
// once exhausted, the last reply (or Err) is returned for all further
// calls. Safe for concurrent use, since callers like the bounded
// scoring worker pool invoke Complete from multiple goroutines.
type FakeClient struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	Calls []CompletionRequest
}

// Complete records req and returns the next scripted reply.
func (f *FakeClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	idx := len(f.Calls) - 1
	if idx >= len(f.Replies) {
		idx = len(f.Replies) - 1
	}
	return f.Replies[idx], nil
}
