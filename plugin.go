package hookstate

import (
	"fmt"

	"github.com/google/uuid"
)

// PluginID identifies a plugin. Two ids built with the same name are still
// distinct; keep the value returned by NewPluginID to look a plugin up.
type PluginID struct {
	name string
	id   uuid.UUID
}

// NewPluginID returns a fresh plugin identifier.
func NewPluginID(name string) PluginID {
	return PluginID{name: name, id: uuid.New()}
}

func (id PluginID) Name() string {
	return id.name
}

func (id PluginID) IsZero() bool {
	return id.id == uuid.Nil
}

func (id PluginID) String() string {
	if id.name == "" {
		return id.id.String()
	}
	return id.name + "#" + id.id.String()
}

// SetEvent describes a committed set or merge. Merged holds the patch for
// merges and is nil for sets. Deleted is true when the deletion marker was
// written.
type SetEvent struct {
	Path     Path
	State    any
	Previous any
	Value    any
	Merged   any
	Deleted  bool
	Changes  ChangeSet
}

// DestroyEvent carries the final root snapshot.
type DestroyEvent struct {
	State any
}

// BatchEvent describes an outermost batch boundary.
type BatchEvent struct {
	Path    Path
	State   any
	Context any
}

// PluginCallbacks is the optional callback bundle a plugin returns from
// Init. Plugins observe mutations; they cannot veto them.
type PluginCallbacks struct {
	OnSet         func(SetEvent)
	OnDestroy     func(DestroyEvent)
	OnBatchStart  func(BatchEvent)
	OnBatchFinish func(BatchEvent)
}

// Plugin describes an extension attached to a State.
type Plugin struct {
	ID   PluginID
	Init func(root *Accessor) PluginCallbacks
}

// PluginFactory builds the plugin descriptor on attach.
type PluginFactory func() Plugin

type pluginEntry struct {
	id        PluginID
	callbacks PluginCallbacks
}

// Attach attaches the plugin produced by factory. Attaching an id that is
// already present returns the existing callbacks without calling Init.
func (s *State) Attach(factory PluginFactory) (PluginCallbacks, error) {
	if s.destroyed {
		return PluginCallbacks{}, wrapStateError("attach", Root, ErrDestroyed)
	}
	if factory == nil {
		return PluginCallbacks{}, wrapStateError("attach", Root, ErrInvalidPlugin)
	}
	plugin := factory()
	if plugin.ID.IsZero() {
		return PluginCallbacks{}, wrapStateError("attach", Root, ErrInvalidPlugin)
	}
	if existing, ok := s.pluginIndex[plugin.ID]; ok {
		return existing.callbacks, nil
	}

	var callbacks PluginCallbacks
	if plugin.Init != nil {
		root := s.accessorFor(nil, Root)
		if !s.guard(Root, "plugin.init "+plugin.ID.String(), func() { callbacks = plugin.Init(root) }) {
			return PluginCallbacks{}, wrapStateError("attach", Root, fmt.Errorf("plugin %s init panicked", plugin.ID))
		}
	}
	entry := &pluginEntry{id: plugin.ID, callbacks: callbacks}
	s.plugins = append(s.plugins, entry)
	s.pluginIndex[plugin.ID] = entry
	return callbacks, nil
}

// Plugin looks up the callbacks attached under id.
func (s *State) Plugin(id PluginID) (PluginCallbacks, error) {
	if s.destroyed {
		return PluginCallbacks{}, wrapStateError("plugin", Root, ErrDestroyed)
	}
	entry, ok := s.pluginIndex[id]
	if !ok {
		return PluginCallbacks{}, wrapStateError("plugin", Root, fmt.Errorf("%w: %s", ErrPluginNotAttached, id))
	}
	return entry.callbacks, nil
}

func (s *State) hasSetHooks() bool {
	for _, entry := range s.plugins {
		if entry.callbacks.OnSet != nil {
			return true
		}
	}
	return false
}

func (s *State) emitSet(event SetEvent) {
	if !s.hasSetHooks() {
		return
	}
	event.State = s.snapshot()
	for _, entry := range s.plugins {
		if fn := entry.callbacks.OnSet; fn != nil {
			s.guard(event.Path, "plugin.onSet "+entry.id.String(), func() { fn(event) })
		}
	}
}

func (s *State) emitDestroy() {
	var event DestroyEvent
	built := false
	for _, entry := range s.plugins {
		fn := entry.callbacks.OnDestroy
		if fn == nil {
			continue
		}
		if !built {
			event.State = s.snapshot()
			built = true
		}
		s.guard(Root, "plugin.onDestroy "+entry.id.String(), func() { fn(event) })
	}
}

func (s *State) emitBatch(path Path, context any, start bool) {
	var event BatchEvent
	built := false
	for _, entry := range s.plugins {
		fn := entry.callbacks.OnBatchFinish
		source := "plugin.onBatchFinish "
		if start {
			fn = entry.callbacks.OnBatchStart
			source = "plugin.onBatchStart "
		}
		if fn == nil {
			continue
		}
		if !built {
			event = BatchEvent{Path: path, State: s.snapshot(), Context: context}
			built = true
		}
		s.guard(path, source+entry.id.String(), func() { fn(event) })
	}
}
