package irrecoverable

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/atomic"
)

// Signaler forwards the first irrecoverable error of a component tree to
// whoever supervises it. Later errors are dropped.
type Signaler struct {
	errors chan error
	thrown *atomic.Bool
}

// NewSignaler returns a signaler and the channel the first thrown error is
// delivered on.
func NewSignaler() (*Signaler, <-chan error) {
	errors := make(chan error, 1)
	return &Signaler{
		errors: errors,
		thrown: atomic.NewBool(false),
	}, errors
}

// Throw delivers err and terminates the calling goroutine. It is a
// replacement for panic or log.Fatal inside components that own a
// SignalerContext.
func (s *Signaler) Throw(err error) {
	if s.thrown.CompareAndSwap(false, true) {
		s.errors <- err
		close(s.errors)
	}
	runtime.Goexit()
}

// SignalerContext is a context.Context that can report irrecoverable errors.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler wraps ctx into a SignalerContext reporting to sig.
func WithSignaler(ctx context.Context, sig *Signaler) SignalerContext {
	return signalerCtx{ctx, sig}
}

// WithSignallerAndCancel returns a SignalerContext derived from parent, its
// cancel function and the channel of thrown errors.
func WithSignallerAndCancel(parent context.Context) (SignalerContext, context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(parent)
	sig, errCh := NewSignaler()
	return WithSignaler(ctx, sig), cancel, errCh
}

// Throw reports err through ctx if it is a SignalerContext, and panics
// otherwise.
func Throw(ctx context.Context, err error) {
	if signalerCtx, ok := ctx.(SignalerContext); ok {
		signalerCtx.Throw(err)
	}
	panic(fmt.Sprintf("irrecoverable error signaler not found for context, unhandled error: %v", err))
}
