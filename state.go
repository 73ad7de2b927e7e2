package hookstate

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-hookstate/internal/tree"
)

// State owns one value tree together with its subscriptions and plugins.
//
// A State is not safe for concurrent use. Reads, writes and notifications
// run synchronously on the caller's goroutine; promise settlements reach the
// State through the configured Dispatcher.
type State struct {
	cfg   stateConfig
	store store

	promised   bool
	err        error
	promiseSeq uint64
	queue      []queuedWrite

	destroyed bool

	subs       []*Subscription
	batchDepth int
	pending    ChangeSet

	plugins     []*pluginEntry
	pluginIndex map[PluginID]*pluginEntry

	accessors    accessorCache
	epoch        uint64
	subtreeMarks map[string]uint64
	selfMarks    map[string]uint64
}

type queuedWrite struct {
	path  Path
	value any
	merge bool
}

// New creates a State. initial may be a value, a *Promise, the deletion
// marker, or a func() any / func() *Promise producing either.
func New(initial any, opts ...Option) *State {
	s := &State{
		cfg:          applyOptions(opts),
		pluginIndex:  map[PluginID]*pluginEntry{},
		accessors:    newAccessorCache(),
		subtreeMarks: map[string]uint64{},
		selfMarks:    map[string]uint64{},
	}

	switch fn := initial.(type) {
	case func() any:
		initial = fn()
	case func() *Promise:
		initial = fn()
	}

	switch {
	case isPromise(initial):
		s.setPromise(initial.(*Promise), false)
	case IsNone(initial):
		s.promised = true
	default:
		s.store.root = tree.Normalize(initial)
	}

	for _, err := range s.cfg.errs {
		s.cfg.logger.LogEvent(LogEvent{Kind: LogInvalidOption, Path: Root, Err: err})
	}
	for _, factory := range s.cfg.plugins {
		if _, err := s.Attach(factory); err != nil {
			s.cfg.logger.LogEvent(LogEvent{Kind: LogPluginAttach, Path: Root, Err: err})
		}
	}
	return s
}

func isPromise(v any) bool {
	p, ok := v.(*Promise)
	return ok && p != nil
}

// Root returns the untracked root accessor.
func (s *State) Root() *Accessor {
	return s.accessorFor(nil, Root)
}

// Accessor returns the untracked accessor for path.
func (s *State) Accessor(path Path) *Accessor {
	return s.accessorFor(nil, path)
}

// Promised reports whether the root is waiting on a promise.
func (s *State) Promised() bool {
	return s.promised
}

// Err returns the rejection reason of the last root promise, if any. A
// destroyed state reports ErrDestroyed.
func (s *State) Err() error {
	if s.destroyed {
		return wrapStateError("err", Root, ErrDestroyed)
	}
	return s.err
}

// Destroyed reports whether Destroy has run.
func (s *State) Destroyed() bool {
	return s.destroyed
}

// Batch runs fn with notifications coalesced until it returns.
func (s *State) Batch(fn func() error, context any) error {
	if fn == nil {
		return nil
	}
	return s.runBatch(Root, context, fn)
}

// Destroy runs every plugin's OnDestroy and then makes the State unusable.
// Calling Destroy again is a no-op.
func (s *State) Destroy() {
	if s.destroyed {
		return
	}
	s.emitDestroy()
	s.destroyed = true
	for _, sub := range s.subs {
		sub.active = false
	}
	s.subs = nil
	s.pending = nil
	s.queue = nil
	s.promiseSeq++
	s.accessors = newAccessorCache()
}

// Snapshot returns a detached copy of the whole tree without recording a read.
func (s *State) Snapshot() (any, error) {
	if s.destroyed {
		return nil, wrapStateError("snapshot", Root, ErrDestroyed)
	}
	return s.snapshot(), nil
}

func (s *State) snapshot() any {
	return tree.Export(s.store.root)
}

func (s *State) write(op string, path Path, arg any, merge bool) error {
	if s.destroyed {
		return wrapStateError(op, path, ErrDestroyed)
	}
	if s.promised && (!path.IsRoot() || merge) {
		s.queue = append(s.queue, queuedWrite{path: append(Path{}, path...), value: arg, merge: merge})
		return nil
	}

	current, _ := s.store.get(path)
	if fn, ok := asUpdater(arg); ok {
		arg = fn(tree.Export(current))
	}

	if p, ok := arg.(*Promise); ok && p != nil {
		if !path.IsRoot() || merge {
			return wrapStateError(op, path, ErrPromiseNotAtRoot)
		}
		s.setPromise(p, true)
		return nil
	}

	if path.IsRoot() {
		if s.promised {
			s.promiseSeq++
			s.promised = false
			s.dropQueue("superseded")
		}
		s.err = nil
		if !merge && IsNone(arg) {
			return s.clearRoot()
		}
	}

	hooks := s.hasSetHooks()
	var previous any
	if hooks {
		previous = tree.Export(current)
	}
	prevKind := tree.KindOf(current)

	var (
		changes ChangeSet
		err     error
	)
	if merge {
		changes, err = s.store.merge(path, arg)
	} else {
		changes, err = s.store.set(path, normalizeWrite(arg))
	}
	if err != nil {
		return wrapStateError(op, path, err)
	}
	if changes.Empty() {
		return nil
	}
	s.retopologize(path, prevKind, changes)

	if hooks {
		var merged any
		if merge {
			merged = tree.Export(tree.Normalize(arg))
		}
		value, _ := s.store.get(path)
		s.emitSet(SetEvent{
			Path:     path,
			Previous: previous,
			Value:    tree.Export(value),
			Merged:   merged,
			Deleted:  !merge && IsNone(arg),
			Changes:  changes,
		})
	}
	s.notify(changes)
	return nil
}

// clearRoot handles writing the deletion marker at the root: the state
// becomes promised with no value and no pending promise.
func (s *State) clearRoot() error {
	s.promiseSeq++
	s.promised = true
	previous := s.snapshot()
	s.store.root = nil
	s.invalidateSubtree(Root)
	changes := ChangeSet{{Path: Root, Kind: ChangeValue}}
	s.emitSet(SetEvent{Path: Root, Previous: previous, Deleted: true, Changes: changes})
	s.notify(changes)
	return nil
}

// setPromise puts the root into the promised condition. Writes announce
// the change to plugins with the value and state blanked; construction
// does not, as no plugin is attached yet.
func (s *State) setPromise(p *Promise, announce bool) {
	hooks := announce && s.hasSetHooks()
	var previous any
	if hooks {
		previous = s.snapshot()
	}
	s.promiseSeq++
	seq := s.promiseSeq
	s.dropQueue("superseded")
	s.promised = true
	s.err = nil
	s.store.root = nil
	s.invalidateSubtree(Root)
	changes := ChangeSet{{Path: Root, Kind: ChangeValue}}
	if hooks {
		s.emitSet(SetEvent{Path: Root, Previous: previous, Changes: changes})
	}
	s.notify(changes)

	p.Then(func(value any, err error) {
		s.cfg.dispatcher(func() { s.settle(seq, value, err) })
	})
}

func (s *State) settle(seq uint64, value any, err error) {
	if s.destroyed || seq != s.promiseSeq {
		s.cfg.logger.LogEvent(LogEvent{Kind: LogStaleSettlement, Path: Root, Err: err})
		return
	}
	s.promised = false
	changes := ChangeSet{{Path: Root, Kind: ChangeValue}}

	if err != nil {
		s.err = err
		s.cfg.logger.LogEvent(LogEvent{Kind: LogPromiseRejected, Path: Root, Err: err})
		s.dropQueue("rejected")
		s.notify(changes)
		return
	}

	s.err = nil
	s.store.root = tree.Normalize(value)
	queue := s.queue
	s.queue = nil

	s.coalesce(func() {
		s.emitSet(SetEvent{Path: Root, Value: s.snapshot(), Changes: changes})
		s.notify(changes)
		for _, w := range queue {
			op := "set"
			if w.merge {
				op = "merge"
			}
			if err := s.write(op, w.path, w.value, w.merge); err != nil {
				s.cfg.logger.LogEvent(LogEvent{Kind: LogQueueDropped, Path: w.path, Detail: "replay", Err: err})
			}
		}
	})
}

func (s *State) dropQueue(reason string) {
	if len(s.queue) == 0 {
		return
	}
	s.cfg.logger.LogEvent(LogEvent{
		Kind:   LogQueueDropped,
		Path:   Root,
		Detail: fmt.Sprintf("%s: %d queued writes", reason, len(s.queue)),
	})
	s.queue = nil
}

type cachedAccessor struct {
	accessor *Accessor
	epoch    uint64
}

type accessorCache struct {
	entries map[string]cachedAccessor
}

func newAccessorCache() accessorCache {
	return accessorCache{entries: map[string]cachedAccessor{}}
}

// accessorFor returns the cached accessor for path, constructing one when
// none exists or the cached one predates a topology change above it.
func (s *State) accessorFor(obs *Observation, path Path) *Accessor {
	cache := &s.accessors
	if obs != nil {
		cache = &obs.accessors
	}
	key := path.canonical()
	if entry, ok := cache.entries[key]; ok && s.cacheValid(path, entry.epoch) {
		return entry.accessor
	}
	a := &Accessor{state: s, path: append(Path{}, path...), obs: obs}
	cache.entries[key] = cachedAccessor{accessor: a, epoch: s.epoch}
	return a
}

func (s *State) cacheValid(path Path, epoch uint64) bool {
	if len(s.subtreeMarks) == 0 && len(s.selfMarks) == 0 {
		return true
	}
	if s.selfMarks[path.canonical()] > epoch {
		return false
	}
	var prefix strings.Builder
	for _, key := range path {
		if s.subtreeMarks[prefix.String()] > epoch {
			return false
		}
		writeCanonicalKey(&prefix, key)
	}
	return true
}

func (s *State) invalidateSubtree(path Path) {
	s.epoch++
	s.subtreeMarks[path.canonical()] = s.epoch
}

func (s *State) invalidateRemoved(path Path) {
	s.epoch++
	key := path.canonical()
	s.subtreeMarks[key] = s.epoch
	s.selfMarks[key] = s.epoch
}

// retopologize drops cached accessors for removed locations and for the
// subtree of path when its container kind changed.
func (s *State) retopologize(path Path, prevKind tree.Kind, changes ChangeSet) {
	for _, change := range changes {
		if change.Kind != ChangeValue {
			continue
		}
		if _, ok := s.store.get(change.Path); !ok {
			s.invalidateRemoved(change.Path)
		}
	}
	if node, ok := s.store.get(path); ok && tree.KindOf(node) != prevKind {
		s.invalidateSubtree(path)
	}
}
