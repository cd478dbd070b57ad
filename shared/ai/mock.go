package ai

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Responses are consumed in
// order and the last one repeats once the queue is drained.
type MockClient struct {
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)
	Responses    []string
	Err          error
	ModelName    string

	mu    sync.Mutex
	calls []Request
}

func NewMockClient(responses ...string) *MockClient {
	return &MockClient{Responses: responses, ModelName: "mock-model"}
}

func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, NewError(ErrorTypeResponse, "no scripted response", false, nil)
	}

	idx := n - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return &Response{
		Content:          m.Responses[idx],
		Model:            m.Model(),
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
	}, nil
}

func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of every request received.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
