package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. It returns queued
// responses in order and counts every Complete call, which lets cache
// tests assert the generation collaborator was invoked exactly once.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int

	// Err, when set, is returned from every call regardless of queue.
	Err error
}

// NewMockClient creates a mock that cycles through the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// QueueError appends an error result to the response sequence, after
// any responses queued so far.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.errs) < len(m.responses) {
		m.errs = append(m.errs, nil)
	}
	m.errs = append(m.errs, err)
	m.responses = append(m.responses, "")
}

// Complete returns the next scripted response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++

	if m.Err != nil {
		return "", m.Err
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if len(m.responses) == 0 {
		return "", ErrEmptyResponse
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// Available returns true.
func (m *MockClient) Available() bool { return true }

// Calls returns how many times Complete was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure interface compliance.
var _ Client = (*MockClient)(nil)
