package irrecoverable

import (
	"context"
	"runtime"
	"testing"
)

// MockSignalerContext is a SignalerContext for tests. A thrown error marks the
// test as failed and ends the throwing goroutine, like the real signaler does.
type MockSignalerContext struct {
	context.Context
	t      testing.TB
	thrown chan error
}

var _ SignalerContext = (*MockSignalerContext)(nil)

func (m *MockSignalerContext) sealed() {}

func (m *MockSignalerContext) Throw(err error) {
	m.t.Errorf("unexpected irrecoverable error: %v", err)
	select {
	case m.thrown <- err:
	default:
	}
	runtime.Goexit()
}

// Thrown yields the first error passed to Throw.
func (m *MockSignalerContext) Thrown() <-chan error {
	return m.thrown
}

func NewMockSignalerContext(t testing.TB, ctx context.Context) *MockSignalerContext {
	return &MockSignalerContext{
		Context: ctx,
		t:       t,
		thrown:  make(chan error, 1),
	}
}
