// Package reactive binds a change-driven value source to a smoothing window so
// that every change is pushed exactly once and reads never push.
package reactive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ayusman/handeye/internal/opt"
	"github.com/ayusman/handeye/internal/smooth"
)

// ErrClosed is returned when publishing to a closed pipeline.
var ErrClosed = errors.New("pipeline closed")

// Pipeline owns one smoothing window. Publish is the only path that pushes
// into it; Latest and subscriber channels only observe the result.
type Pipeline[T any] struct {
	mu     sync.RWMutex
	window *smooth.Window[T]
	latest opt.Value[T]
	subs   map[uint64]chan opt.Value[T]
	nextID uint64
	closed bool

	pushes atomic.Uint64
}

// New creates a Pipeline that takes ownership of w.
// The caller must not use w directly afterwards.
func New[T any](w *smooth.Window[T]) *Pipeline[T] {
	return &Pipeline[T]{
		window: w,
		subs:   make(map[uint64]chan opt.Value[T]),
	}
}

// Publish handles one upstream change event: it pushes v into the window once
// and notifies subscribers of the new smoothed value, which it also returns.
func (p *Pipeline[T]) Publish(v opt.Value[T]) (opt.Value[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return opt.None[T](), ErrClosed
	}

	p.latest = p.window.Push(v)
	p.pushes.Add(1)

	for _, ch := range p.subs {
		// Latest-only delivery: replace any value the subscriber has not read yet
		select {
		case <-ch:
		default:
		}
		ch <- p.latest
	}

	return p.latest, nil
}

// Run publishes every value received on events, in arrival order, until the
// channel is closed or ctx is done.
func (p *Pipeline[T]) Run(ctx context.Context, events <-chan opt.Value[T]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := p.Publish(v); err != nil {
				return err
			}
		}
	}
}

// Latest returns the most recent smoothed value, or absent before the first
// event. It has no side effects.
func (p *Pipeline[T]) Latest() opt.Value[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Pushes returns how many values have been pushed into the window.
func (p *Pipeline[T]) Pushes() uint64 {
	return p.pushes.Load()
}

// WindowLen returns the number of entries in the window.
func (p *Pipeline[T]) WindowLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.window.Len()
}

// Snapshot returns the latest smoothed value together with the push count
// that produced it.
func (p *Pipeline[T]) Snapshot() (opt.Value[T], uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.pushes.Load()
}

// Subscribe returns a channel that receives the smoothed value after each
// publish. Only the newest unread value is kept. The returned function
// unsubscribes and closes the channel.
func (p *Pipeline[T]) Subscribe() (<-chan opt.Value[T], func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan opt.Value[T], 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

// Reset clears the window history and the latest value.
func (p *Pipeline[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window.Reset()
	p.latest = opt.None[T]()
}

// Close discards the window state and closes all subscriber channels.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	p.window.Reset()
	p.latest = opt.None[T]()
}
