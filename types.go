package hookstate

import (
	"github.com/goliatone/go-hookstate/internal/tree"
)

// None is the deletion marker. Writing it removes the key from its parent;
// writing it at the root puts the state into the promised condition with no
// value.
var None = tree.None

// IsNone reports whether v is the deletion marker.
func IsNone(v any) bool {
	return tree.IsNone(v)
}

// Updater computes a replacement from the current value. Plain
// func(any) any values are accepted wherever an Updater is.
type Updater func(current any) any

func asUpdater(v any) (Updater, bool) {
	switch fn := v.(type) {
	case Updater:
		return fn, fn != nil
	case func(any) any:
		return Updater(fn), fn != nil
	}
	return nil, false
}

// Dispatcher runs promise settlements. The default runs them inline on the
// goroutine that settles the promise; applications with their own event loop
// should marshal fn onto it.
type Dispatcher func(fn func())

func inlineDispatcher(fn func()) {
	fn()
}

// ChangeKind distinguishes a replaced value from a changed key set.
type ChangeKind int

const (
	// ChangeValue means the value at Path was written.
	ChangeValue ChangeKind = iota
	// ChangeKeys means the enumerable keys of the container at Path changed.
	ChangeKeys
)

func (k ChangeKind) String() string {
	if k == ChangeKeys {
		return "keys"
	}
	return "value"
}

// Change is one affected location reported by a mutation.
type Change struct {
	Path Path
	Kind ChangeKind
}

// ChangeSet is the deduplicated list of changes produced by a mutation or a
// batch of mutations.
type ChangeSet []Change

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

// Paths returns the distinct changed paths in first-seen order.
func (c ChangeSet) Paths() []Path {
	seen := make(map[string]struct{}, len(c))
	out := make([]Path, 0, len(c))
	for _, change := range c {
		key := change.Path.canonical()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, change.Path)
	}
	return out
}

// Contains reports whether the set holds a change of kind at path.
func (c ChangeSet) Contains(path Path, kind ChangeKind) bool {
	for _, change := range c {
		if change.Kind == kind && change.Path.Equal(path) {
			return true
		}
	}
	return false
}

func (c ChangeSet) union(other ChangeSet) ChangeSet {
	out := c
	for _, change := range other {
		if out.Contains(change.Path, change.Kind) {
			continue
		}
		out = append(out, change)
	}
	return out
}

func (c *ChangeSet) value(path Path) {
	*c = append(*c, Change{Path: path, Kind: ChangeValue})
}

func (c *ChangeSet) keys(path Path) {
	*c = append(*c, Change{Path: path, Kind: ChangeKeys})
}

// Option configures a State.
type Option func(*stateConfig)

type stateConfig struct {
	logger       Logger
	dispatcher   Dispatcher
	plugins      []PluginFactory
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	errs         []error
}

func applyOptions(opts []Option) stateConfig {
	cfg := stateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.dispatcher == nil {
		cfg.dispatcher = inlineDispatcher
	}
	return cfg
}

// WithDispatcher routes promise settlements through dispatcher.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(cfg *stateConfig) {
		cfg.dispatcher = dispatcher
	}
}

// WithPlugins attaches plugins, in order, when the State is created.
func WithPlugins(factories ...PluginFactory) Option {
	return func(cfg *stateConfig) {
		for _, factory := range factories {
			if factory != nil {
				cfg.plugins = append(cfg.plugins, factory)
			}
		}
	}
}
