package hookstate

import (
	"sort"

	"github.com/google/uuid"
)

type readKind uint8

const (
	readValue readKind = 1 << iota
	readKeys
	readStatus
)

type usage struct {
	path  Path
	kinds readKind
}

// overlaps applies the read/write matching rules:
//
//	value read R, value change C: R and C are ancestor, equal or descendant
//	value read R, keys change C:  R is C or an ancestor of C
//	keys read R,  value change C: C is R or an ancestor of R
//	keys read R,  keys change C:  R equals C
//	status read,  value change at the root
func (u *usage) overlaps(change Change) bool {
	if u.kinds&readValue != 0 {
		switch change.Kind {
		case ChangeValue:
			if u.path.Overlaps(change.Path) {
				return true
			}
		case ChangeKeys:
			if change.Path.HasPrefix(u.path) {
				return true
			}
		}
	}
	if u.kinds&readKeys != 0 {
		switch change.Kind {
		case ChangeValue:
			if u.path.HasPrefix(change.Path) {
				return true
			}
		case ChangeKeys:
			if u.path.Equal(change.Path) {
				return true
			}
		}
	}
	if u.kinds&readStatus != 0 && change.Kind == ChangeValue && change.Path.IsRoot() {
		return true
	}
	return false
}

// Observation records the paths read through its accessors during one
// tracked pass, such as a single render. Observations are independent of
// each other and hold no tree data.
type Observation struct {
	id        uuid.UUID
	state     *State
	reads     map[string]*usage
	accessors accessorCache
}

// Observe starts a new observation context.
func (s *State) Observe() *Observation {
	return &Observation{
		id:        uuid.New(),
		state:     s,
		reads:     map[string]*usage{},
		accessors: newAccessorCache(),
	}
}

func (o *Observation) ID() uuid.UUID {
	return o.id
}

func (o *Observation) State() *State {
	return o.state
}

// Root returns the root accessor bound to this observation.
func (o *Observation) Root() *Accessor {
	return o.state.accessorFor(o, Root)
}

// Accessor returns the accessor for path bound to this observation.
func (o *Observation) Accessor(path Path) *Accessor {
	return o.state.accessorFor(o, path)
}

// Record marks path as read. Recording the same path twice is a no-op.
func (o *Observation) Record(path Path) {
	o.record(path, readValue)
}

// RecordKeys marks the key set of path as read.
func (o *Observation) RecordKeys(path Path) {
	o.record(path, readKeys)
}

func (o *Observation) record(path Path, kind readKind) {
	key := path.canonical()
	if u, ok := o.reads[key]; ok {
		u.kinds |= kind
		return
	}
	o.reads[key] = &usage{path: append(Path{}, path...), kinds: kind}
}

// Paths lists the recorded paths sorted by their dot notation.
func (o *Observation) Paths() []Path {
	out := make([]Path, 0, len(o.reads))
	for _, u := range o.reads {
		out = append(out, append(Path{}, u.path...))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len reports how many distinct paths were recorded.
func (o *Observation) Len() int {
	return len(o.reads)
}

// Reset forgets every recorded path so the observation can be reused for
// the next pass.
func (o *Observation) Reset() {
	o.reads = map[string]*usage{}
}

// Overlaps reports whether any recorded read is affected by changes.
func (o *Observation) Overlaps(changes ChangeSet) bool {
	for _, change := range changes {
		for _, u := range o.reads {
			if u.overlaps(change) {
				return true
			}
		}
	}
	return false
}

// Subscribe registers fn to run whenever a change overlaps this
// observation's reads.
func (o *Observation) Subscribe(fn func(ChangeSet)) (*Subscription, error) {
	return o.state.Subscribe(o, fn)
}
