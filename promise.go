package hookstate

import (
	"context"
	"sync"
)

// Promise is a settle-once asynchronous value. It may be settled from any
// goroutine; continuations registered with Then run on the settling
// goroutine, or immediately when the promise has already settled.
type Promise struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	waiters []func(any, error)
}

// NewPromise returns a pending promise.
func NewPromise() *Promise {
	return &Promise{}
}

// Resolved returns a promise already fulfilled with value.
func Resolved(value any) *Promise {
	p := NewPromise()
	p.Resolve(value)
	return p
}

// Rejected returns a promise already rejected with err.
func Rejected(err error) *Promise {
	p := NewPromise()
	p.Reject(err)
	return p
}

// Go runs fn on a new goroutine and settles the returned promise with its
// result. A nil error with a context error present rejects with the context
// error.
//
// The promise settles on that goroutine. When it is written into a State,
// the State must be built WithDispatcher so the settlement is handed back to
// the goroutine that owns the State; the default inline dispatcher would
// apply it from the worker goroutine.
func Go(ctx context.Context, fn func(context.Context) (any, error)) *Promise {
	if ctx == nil {
		ctx = context.Background()
	}
	p := NewPromise()
	go func() {
		value, err := fn(ctx)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(value)
	}()
	return p
}

// Resolve fulfils the promise. Resolving with another *Promise adopts its
// outcome. It reports false when the promise had already settled.
func (p *Promise) Resolve(value any) bool {
	if inner, ok := value.(*Promise); ok && inner != nil {
		if inner == p {
			return p.settle(nil, ErrRejected)
		}
		p.mu.Lock()
		if p.settled {
			p.mu.Unlock()
			return false
		}
		p.mu.Unlock()
		inner.Then(func(v any, err error) {
			p.settle(v, err)
		})
		return true
	}
	return p.settle(value, nil)
}

// Reject fails the promise. A nil err is replaced with ErrRejected.
func (p *Promise) Reject(err error) bool {
	if err == nil {
		err = ErrRejected
	}
	return p.settle(nil, err)
}

func (p *Promise) settle(value any, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.value = value
	p.err = err
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, fn := range waiters {
		fn(value, err)
	}
	return true
}

// Then registers fn to receive the outcome.
func (p *Promise) Then(fn func(value any, err error)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	if p.settled {
		value, err := p.value, p.err
		p.mu.Unlock()
		fn(value, err)
		return
	}
	p.waiters = append(p.waiters, fn)
	p.mu.Unlock()
}

// Result returns the outcome and whether the promise has settled.
func (p *Promise) Result() (value any, settled bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.settled, p.err
}
