// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

// ErrBridgeClosed is returned by Invoke once the serving loop has stopped
var ErrBridgeClosed = errors.New("owner thread bridge is closed")

// Dispatcher runs fn on the host's owner thread and returns once fn has finished
type Dispatcher interface {
	Invoke(ctx context.Context, fn func()) error
}

type bridgeRequest struct {
	fn   func()
	done chan struct{}
}

// Bridge hands work from any goroutine to the goroutine running Serve.
// At most one request is in flight; concurrent callers queue behind it.
type Bridge struct {
	requests chan bridgeRequest
	closed   chan struct{}
	once     sync.Once
	inflight sync.Mutex
	logger   *slog.Logger
}

// NewBridge creates a Bridge; call Serve from the owner thread to start it
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		requests: make(chan bridgeRequest),
		closed:   make(chan struct{}),
		logger:   logger,
	}
}

// Serve executes queued requests on the calling goroutine, which stays locked to
// its OS thread, until ctx is done
func (b *Bridge) Serve(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer b.once.Do(func() { close(b.closed) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.requests:
			b.run(req)
		}
	}
}

func (b *Bridge) run(req bridgeRequest) {
	defer close(req.done)
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("owner thread request panicked", "panic", r)
		}
	}()
	req.fn()
}

// Invoke implements Dispatcher. Cancelling ctx only helps before the request is
// picked up; once running, Invoke waits for it to finish.
func (b *Bridge) Invoke(ctx context.Context, fn func()) error {
	b.inflight.Lock()
	defer b.inflight.Unlock()

	req := bridgeRequest{fn: fn, done: make(chan struct{})}
	select {
	case b.requests <- req:
	case <-b.closed:
		return ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.done
	return nil
}
