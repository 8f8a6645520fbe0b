package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/snamp-platform/snamp-go/pkg/accesstimer"
	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/model"
)

// DefaultTimeout bounds reads and writes when neither the caller nor the
// descriptor gives a timeout.
const DefaultTimeout = 10 * time.Second

// DefaultDrainTimeout bounds how long Close waits for in-flight calls.
const DefaultDrainTimeout = 5 * time.Second

// errTimedOut marks a call abandoned at its deadline.
var errTimedOut = errors.New("call deadline exceeded")

// Observer receives repository statistics. pkg/metrics provides a
// Prometheus implementation.
type Observer interface {
	AttributeAccess(resource, op, outcome string, d time.Duration)
	BindingsActive(resource string, n int)
	NotificationFired(resource, category string)
}

type noopObserver struct{}

func (noopObserver) AttributeAccess(string, string, string, time.Duration) {}
func (noopObserver) BindingsActive(string, int)                           {}
func (noopObserver) NotificationFired(string, string)                     {}

// ConnectedAttribute is the live binding of one attribute descriptor.
type ConnectedAttribute struct {
	desc   model.AttributeDescriptor
	handle connector.Handle
	conn   connector.Connector
	timer  *accesstimer.Timer
	logger *slog.Logger

	// refs counts the repository's reference plus in-flight calls.
	refs     atomic.Int64
	detached atomic.Bool
	done     chan struct{}
}

func newConnectedAttribute(desc model.AttributeDescriptor, h connector.Handle, conn connector.Connector, logger *slog.Logger) *ConnectedAttribute {
	b := &ConnectedAttribute{
		desc:   desc,
		handle: h,
		conn:   conn,
		timer:  accesstimer.New(),
		logger: logger,
		done:   make(chan struct{}),
	}
	b.refs.Store(1)
	return b
}

// ID returns the attribute ID.
func (b *ConnectedAttribute) ID() string { return b.desc.ID }

// Descriptor returns a copy of the binding's descriptor.
func (b *ConnectedAttribute) Descriptor() model.AttributeDescriptor { return b.desc.Clone() }

// LastAccess returns the time of the last successful read or write.
func (b *ConnectedAttribute) LastAccess() time.Time { return b.timer.LastAccess() }

// Stale reports whether the binding was not accessed within expiration.
func (b *ConnectedAttribute) Stale(expiration time.Duration) bool { return b.timer.Stale(expiration) }

// Released is closed once the connector handle has been released.
func (b *ConnectedAttribute) Released() <-chan struct{} { return b.done }

// acquire takes a call reference. It fails once the binding is torn down.
func (b *ConnectedAttribute) acquire() bool {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return false
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference; the last one releases the connector handle.
func (b *ConnectedAttribute) release() {
	if b.refs.Add(-1) != 0 {
		return
	}
	if err := b.conn.DisconnectAttribute(b.handle); err != nil {
		b.logger.Warn("disconnect attribute failed", "attribute", b.desc.ID, "error", err)
	}
	close(b.done)
}

// detach drops the repository's reference exactly once.
func (b *ConnectedAttribute) detach() {
	if b.detached.CompareAndSwap(false, true) {
		b.release()
	}
}

// timeoutFor resolves the effective timeout of a call.
func (b *ConnectedAttribute) timeoutFor(timeout time.Duration) time.Duration {
	if timeout >= 0 {
		return timeout
	}
	if b.desc.ReadTimeout > 0 {
		return b.desc.ReadTimeout
	}
	return DefaultTimeout
}

type result struct {
	value any
	err   error
}

// call runs fn on its own goroutine bounded by timeout. The caller must
// hold a reference on b; the goroutine takes it over and releases it when
// fn returns, even if call has already given up.
func (b *ConnectedAttribute) call(ctx context.Context, timeout time.Duration, fn func(context.Context) (any, error)) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		defer b.release()
		v, err := fn(callCtx)
		ch <- result{value: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errTimedOut
		}
		return r.value, r.err
	case <-callCtx.Done():
		// Prefer a result that raced the deadline.
		select {
		case r := <-ch:
			if r.err == nil {
				return r.value, nil
			}
		default:
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errTimedOut
	}
}
