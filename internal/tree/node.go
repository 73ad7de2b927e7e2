package tree

import "strconv"

// Kind classifies a node for merge dispatch and accessor caching.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindList
	KindString
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindString:
		return "string"
	default:
		return "scalar"
	}
}

// KindOf reports the kind of a normalised node.
func KindOf(node any) Kind {
	switch node.(type) {
	case nil:
		return KindNull
	case *Object:
		return KindObject
	case *List:
		return KindList
	case string:
		return KindString
	default:
		return KindScalar
	}
}

// IsContainer reports whether node can hold children.
func IsContainer(node any) bool {
	switch node.(type) {
	case *Object, *List:
		return true
	}
	return false
}

type deletion struct{}

func (deletion) String() string { return "none" }

// None is the deletion marker. It is never stored.
var None any = deletion{}

// IsNone reports whether v is the deletion marker.
func IsNone(v any) bool {
	_, ok := v.(deletion)
	return ok
}

type absentSlot struct{}

// absent fills list slots that hold no element.
var absent any = absentSlot{}

func isAbsent(v any) bool {
	_, ok := v.(absentSlot)
	return ok
}

// Object is a keyed mapping that remembers insertion order.
type Object struct {
	keys   []string
	values map[string]any
	meta   map[string]any
}

func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores value under key and reports whether the key is new.
func (o *Object) Set(key string, value any) bool {
	if _, ok := o.values[key]; ok {
		o.values[key] = value
		return false
	}
	o.keys = append(o.keys, key)
	o.values[key] = value
	return true
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *Object) Meta(name string) (any, bool) {
	v, ok := o.meta[name]
	return v, ok
}

func (o *Object) SetMeta(name string, value any) {
	if o.meta == nil {
		o.meta = map[string]any{}
	}
	o.meta[name] = value
}

// List is an ordered sequence. Slots may be absent.
type List struct {
	items []any
	meta  map[string]any
}

func NewList(items ...any) *List {
	return &List{items: append([]any(nil), items...)}
}

func (l *List) Len() int {
	return len(l.items)
}

// Get returns the element at index. Absent slots report false.
func (l *List) Get(index int) (any, bool) {
	if index < 0 || index >= len(l.items) {
		return nil, false
	}
	v := l.items[index]
	if isAbsent(v) {
		return nil, false
	}
	return v, true
}

// Set stores value at index, padding with absent slots when index is past
// the end. It reports whether the list grew.
func (l *List) Set(index int, value any) bool {
	if index < len(l.items) {
		l.items[index] = value
		return false
	}
	for len(l.items) < index {
		l.items = append(l.items, absent)
	}
	l.items = append(l.items, value)
	return true
}

func (l *List) Append(values ...any) {
	l.items = append(l.items, values...)
}

// RemoveAt deletes the element at index and shifts the tail left.
func (l *List) RemoveAt(index int) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return true
}

// Clear leaves an absent hole at index.
func (l *List) Clear(index int) bool {
	if index < 0 || index >= len(l.items) || isAbsent(l.items[index]) {
		return false
	}
	l.items[index] = absent
	return true
}

// TrimAbsent drops the trailing run of absent slots and returns how many
// were dropped. Holes before the last present element stay.
func (l *List) TrimAbsent() int {
	n := len(l.items)
	for n > 0 && isAbsent(l.items[n-1]) {
		n--
	}
	dropped := len(l.items) - n
	l.items = l.items[:n]
	return dropped
}

func (l *List) Meta(name string) (any, bool) {
	v, ok := l.meta[name]
	return v, ok
}

func (l *List) SetMeta(name string, value any) {
	if l.meta == nil {
		l.meta = map[string]any{}
	}
	l.meta[name] = value
}

// Child looks up key within node. List keys must be decimal indices.
func Child(node any, key string) (any, bool) {
	switch typed := node.(type) {
	case *Object:
		return typed.Get(key)
	case *List:
		index, ok := ParseIndex(key)
		if !ok {
			return nil, false
		}
		return typed.Get(index)
	}
	return nil, false
}

// Lookup walks keys from root.
func Lookup(root any, keys []string) (any, bool) {
	current := root
	for _, key := range keys {
		next, ok := Child(current, key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// ChildKeys lists the enumerable keys of a container; nil for anything else.
func ChildKeys(node any) []string {
	switch typed := node.(type) {
	case *Object:
		return typed.Keys()
	case *List:
		keys := make([]string, len(typed.items))
		for i := range typed.items {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// ParseIndex parses a canonical non-negative decimal index.
func ParseIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return index, true
}

// MetaOf reads side-channel metadata from a container node.
func MetaOf(node any, name string) (any, bool) {
	switch typed := node.(type) {
	case *Object:
		return typed.Meta(name)
	case *List:
		return typed.Meta(name)
	}
	return nil, false
}
