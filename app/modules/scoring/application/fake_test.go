package scoringservice

import (
	"context"
	"sync"
	"time"
)

// ------------------------
// Fake Resolver
// ------------------------

type FakeResolver struct {
	mu    sync.Mutex
	calls []string

	ResolveFunc func(ctx context.Context, locator string) (string, error)
}

func (f *FakeResolver) ResolveToBase64(ctx context.Context, locator string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, locator)
	f.mu.Unlock()
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, locator)
	}
	return "payload:" + locator, nil
}

// ------------------------
// Fake Embedder
// ------------------------

type FakeEmbedder struct {
	mu    sync.Mutex
	calls map[string]int

	EmbedFunc func(ctx context.Context, payload string, call int) ([]float64, error)
}

func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{calls: map[string]int{}}
}

func (f *FakeEmbedder) Embed(ctx context.Context, payload string) ([]float64, error) {
	f.mu.Lock()
	f.calls[payload]++
	call := f.calls[payload]
	f.mu.Unlock()
	if f.EmbedFunc != nil {
		return f.EmbedFunc(ctx, payload, call)
	}
	return []float64{1, 0}, nil
}

func (f *FakeEmbedder) Calls(payload string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[payload]
}

func (f *FakeEmbedder) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// ------------------------
// Fake Metrics
// ------------------------

type FakeMetrics struct {
	mu        sync.Mutex
	fallbacks []string
	retries   int
	scores    []float64
	failures  int
}

func (m *FakeMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (m *FakeMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (m *FakeMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}

func (m *FakeMetrics) RecordOperationFailure(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *FakeMetrics) RecordFallback(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, reason)
}

func (m *FakeMetrics) RecordEmbeddingRetry(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *FakeMetrics) RecordScore(_ context.Context, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
}
