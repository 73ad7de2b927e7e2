package hookstate

import (
	"github.com/goliatone/go-hookstate/internal/tree"
)

// Accessor is a read/write handle bound to one path of one State. Accessors
// hold no tree data; every read goes back to the store.
//
// Accessors obtained from an Observation record the reads they perform on
// it. Accessors obtained from the State directly never record.
type Accessor struct {
	state *State
	path  Path
	obs   *Observation
}

// Path returns a copy of the accessor path.
func (a *Accessor) Path() Path {
	return append(Path{}, a.path...)
}

func (a *Accessor) State() *State {
	return a.state
}

// Observation returns the observation reads are recorded on, or nil.
func (a *Accessor) Observation() *Observation {
	return a.obs
}

// Observed returns the accessor for the same path recording on obs. A nil
// obs returns the untracked accessor.
func (a *Accessor) Observed(obs *Observation) *Accessor {
	return a.state.accessorFor(obs, a.path)
}

// Nested returns the accessor for a child key.
func (a *Accessor) Nested(key Key) *Accessor {
	return a.state.accessorFor(a.obs, a.path.Append(key))
}

// Field is Nested(Field(name)).
func (a *Accessor) Field(name string) *Accessor {
	return a.Nested(Field(name))
}

// Index is Nested(Index(i)).
func (a *Accessor) Index(i int) *Accessor {
	return a.Nested(Index(i))
}

// At returns the accessor for path relative to this one.
func (a *Accessor) At(path Path) *Accessor {
	return a.state.accessorFor(a.obs, a.path.Append(path...))
}

func (a *Accessor) live(op string) error {
	if a.state.destroyed {
		return wrapStateError(op, a.path, ErrDestroyed)
	}
	return nil
}

func (a *Accessor) record(kind readKind) {
	if a.obs == nil {
		return
	}
	if kind == readStatus {
		a.obs.record(Root, readStatus)
		return
	}
	a.obs.record(a.path, kind)
}

// Get records a value read and returns a detached copy of the value at the
// accessor path. Missing paths, pending promises and rejected promises all
// read as nil with no error.
func (a *Accessor) Get() (any, error) {
	if err := a.live("get"); err != nil {
		return nil, err
	}
	a.record(readValue)
	if a.state.promised || a.state.err != nil {
		return nil, nil
	}
	node, ok := a.state.store.get(a.path)
	if !ok {
		return nil, nil
	}
	return tree.Export(node), nil
}

// Value is Get that panics with the *StateError on failure.
func (a *Accessor) Value() any {
	value, err := a.Get()
	if err != nil {
		panic(err)
	}
	return value
}

// Keys records a key-set read. Mappings report their keys in insertion
// order, lists report 0..len-1. Any other value reports nil.
func (a *Accessor) Keys() ([]Key, error) {
	if err := a.live("keys"); err != nil {
		return nil, err
	}
	a.record(readKeys)
	if a.state.promised || a.state.err != nil {
		return nil, nil
	}
	node, _ := a.state.store.get(a.path)
	switch typed := node.(type) {
	case *tree.Object:
		names := typed.Keys()
		keys := make([]Key, len(names))
		for i, name := range names {
			keys[i] = Field(name)
		}
		return keys, nil
	case *tree.List:
		keys := make([]Key, typed.Len())
		for i := range keys {
			keys[i] = Index(i)
		}
		return keys, nil
	}
	return nil, nil
}

// Len records a key-set read and returns the number of keys.
func (a *Accessor) Len() (int, error) {
	keys, err := a.Keys()
	return len(keys), err
}

// Promised records a status read and reports whether the root is pending.
func (a *Accessor) Promised() bool {
	a.record(readStatus)
	return !a.state.destroyed && a.state.promised
}

// Err records a status read and returns the rejection reason, if any. A
// destroyed state reports ErrDestroyed.
func (a *Accessor) Err() error {
	if err := a.live("err"); err != nil {
		return err
	}
	a.record(readStatus)
	return a.state.err
}

// OrNull returns nil when the value at the path is nil or missing, and the
// accessor itself otherwise.
func (a *Accessor) OrNull() (*Accessor, error) {
	value, err := a.Get()
	if err != nil || value == nil {
		return nil, err
	}
	return a, nil
}

// Map branches on the async status without failing. onValue receives the
// accessor when a value is available. Nil callbacks yield nil.
func (a *Accessor) Map(onValue func(*Accessor) any, onPending func() any, onError func(error) any) any {
	a.record(readStatus)
	switch {
	case a.state.destroyed:
		if onError != nil {
			return onError(wrapStateError("map", a.path, ErrDestroyed))
		}
	case a.state.promised:
		if onPending != nil {
			return onPending()
		}
	case a.state.err != nil:
		if onError != nil {
			return onError(a.state.err)
		}
	default:
		if onValue != nil {
			return onValue(a)
		}
	}
	return nil
}

// Set replaces the value at the path. value may be an Updater, None, or a
// *Promise at the root.
func (a *Accessor) Set(value any) error {
	return a.state.write("set", a.path, value, false)
}

// Merge merges patch into the value at the path.
func (a *Accessor) Merge(patch any) error {
	return a.state.write("merge", a.path, patch, true)
}

// Delete removes the value from its parent. Deleting the root puts the
// state into the promised condition with no value.
func (a *Accessor) Delete() error {
	return a.state.write("delete", a.path, None, false)
}

// Batch runs fn with notifications deferred until the outermost batch
// returns. context is handed to plugin batch callbacks.
func (a *Accessor) Batch(fn func(*Accessor) error, context any) error {
	if fn == nil {
		return nil
	}
	return a.state.runBatch(a.path, context, func() error { return fn(a) })
}

// Attach attaches a plugin to the owning State.
func (a *Accessor) Attach(factory PluginFactory) (PluginCallbacks, error) {
	return a.state.Attach(factory)
}

// Plugin looks up an attached plugin on the owning State.
func (a *Accessor) Plugin(id PluginID) (PluginCallbacks, error) {
	return a.state.Plugin(id)
}

// Meta returns side-channel metadata attached to the container at the path.
// Metadata is never enumerated and reading it is not tracked.
func (a *Accessor) Meta(name string) (any, bool) {
	if a.state.destroyed {
		return nil, false
	}
	node, ok := a.state.store.get(a.path)
	if !ok {
		return nil, false
	}
	return tree.MetaOf(node, name)
}

// SetMeta attaches metadata to the container at the path without notifying
// anyone.
func (a *Accessor) SetMeta(name string, value any) error {
	if err := a.live("meta"); err != nil {
		return err
	}
	node, ok := a.state.store.get(a.path)
	if !ok {
		return wrapStateError("meta", a.path, ErrPathUnreachable)
	}
	switch typed := node.(type) {
	case *tree.Object:
		typed.SetMeta(name, value)
	case *tree.List:
		typed.SetMeta(name, value)
	default:
		return wrapStateError("meta", a.path, ErrNotContainer)
	}
	return nil
}
