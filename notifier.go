package hookstate

import (
	"fmt"

	"github.com/google/uuid"
)

// Subscription ties an observation to an invalidation callback.
type Subscription struct {
	id     uuid.UUID
	state  *State
	obs    *Observation
	fn     func(ChangeSet)
	active bool
}

func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Observation returns the observation whose reads filter notifications.
// A nil observation receives every change.
func (s *Subscription) Observation() *Observation {
	return s.obs
}

// Active reports whether the subscription still receives notifications.
func (s *Subscription) Active() bool {
	return s != nil && s.active
}

// Unsubscribe releases the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active {
		return
	}
	s.active = false
	s.state.removeSubscription(s)
}

// Subscribe registers fn to be called with the changes of every mutation
// that overlaps obs. A nil obs subscribes to all changes.
func (s *State) Subscribe(obs *Observation, fn func(ChangeSet)) (*Subscription, error) {
	if s.destroyed {
		return nil, wrapStateError("subscribe", Root, ErrDestroyed)
	}
	if fn == nil {
		return nil, wrapStateError("subscribe", Root, fmt.Errorf("callback is nil"))
	}
	sub := &Subscription{
		id:     uuid.New(),
		state:  s,
		obs:    obs,
		fn:     fn,
		active: true,
	}
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *State) removeSubscription(sub *Subscription) {
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify delivers changes now, or folds them into the pending set while a
// batch is open.
func (s *State) notify(changes ChangeSet) {
	if changes.Empty() {
		return
	}
	if s.batchDepth > 0 {
		s.pending = s.pending.union(changes)
		return
	}
	s.deliver(changes)
}

func (s *State) deliver(changes ChangeSet) {
	subs := append([]*Subscription(nil), s.subs...)
	for _, sub := range subs {
		if !sub.active {
			continue
		}
		if sub.obs != nil && !sub.obs.Overlaps(changes) {
			continue
		}
		fn := sub.fn
		s.guard(Root, "subscriber", func() { fn(changes) })
	}
}

// runBatch executes fn with notifications deferred until the outermost
// batch returns. Plugin batch callbacks fire once per outermost batch.
func (s *State) runBatch(path Path, context any, fn func() error) error {
	if s.destroyed {
		return wrapStateError("batch", path, ErrDestroyed)
	}
	outer := s.batchDepth == 0
	if outer {
		s.emitBatch(path, context, true)
	}
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if !outer || s.destroyed {
			return
		}
		s.emitBatch(path, context, false)
		s.flush()
	}()
	return fn()
}

// coalesce defers notifications around fn without plugin batch callbacks.
func (s *State) coalesce(fn func()) {
	outer := s.batchDepth == 0
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if outer && !s.destroyed {
			s.flush()
		}
	}()
	fn()
}

func (s *State) flush() {
	pending := s.pending
	s.pending = nil
	if !pending.Empty() {
		s.deliver(pending)
	}
}

// guard runs a user callback. A panicking callback is logged and swallowed
// so the committed mutation and the remaining callbacks are unaffected.
func (s *State) guard(path Path, source string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			s.cfg.logger.LogEvent(LogEvent{
				Kind:   LogCallbackPanic,
				Path:   path,
				Detail: source,
				Err:    fmt.Errorf("%v", r),
			})
		}
	}()
	fn()
	return true
}
