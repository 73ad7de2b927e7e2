package hookstate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-hookstate/internal/tree"
)

// Key addresses one level of the value tree: a mapping key or a list index.
// Index keys and their decimal field spelling address the same location.
type Key struct {
	name    string
	index   int
	isIndex bool
}

// Field builds a mapping key.
func Field(name string) Key {
	return Key{name: name}
}

// Index builds a list index key.
func Index(i int) Key {
	return Key{index: i, isIndex: true, name: strconv.Itoa(i)}
}

// KeyOf converts a string, int or Key into a Key.
func KeyOf(key any) (Key, error) {
	switch typed := key.(type) {
	case Key:
		return typed, nil
	case string:
		return Field(typed), nil
	case int:
		if typed < 0 {
			return Key{}, fmt.Errorf("%w: negative index %d", ErrInvalidKey, typed)
		}
		return Index(typed), nil
	default:
		return Key{}, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, key)
	}
}

// String returns the canonical spelling of the key.
func (k Key) String() string {
	return k.name
}

// IsIndex reports whether the key was built as a list index.
func (k Key) IsIndex() bool {
	return k.isIndex
}

// Int returns the key as a list index when it has a canonical decimal form.
func (k Key) Int() (int, bool) {
	if k.isIndex {
		return k.index, k.index >= 0
	}
	return tree.ParseIndex(k.name)
}

// Path is an ordered sequence of keys. Paths are treated as immutable: every
// method returns a fresh slice.
type Path []Key

// Root is the empty path addressing the whole tree.
var Root = Path{}

// NewPath builds a path from strings, ints or Keys.
func NewPath(keys ...any) (Path, error) {
	path := make(Path, 0, len(keys))
	for _, raw := range keys {
		key, err := KeyOf(raw)
		if err != nil {
			return nil, err
		}
		path = append(path, key)
	}
	return path, nil
}

// MustPath is NewPath that panics on invalid keys.
func MustPath(keys ...any) Path {
	path, err := NewPath(keys...)
	if err != nil {
		panic(err)
	}
	return path
}

// ParsePath splits a dot separated path. All-digit segments become indices.
// The empty string is the root path.
func ParsePath(value string) Path {
	if value == "" {
		return Path{}
	}
	segments := strings.Split(value, ".")
	path := make(Path, 0, len(segments))
	for _, segment := range segments {
		if i, ok := tree.ParseIndex(segment); ok {
			path = append(path, Index(i))
			continue
		}
		path = append(path, Field(segment))
	}
	return path
}

func (p Path) Len() int {
	return len(p)
}

func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Append returns a new path with keys added.
func (p Path) Append(keys ...Key) Path {
	out := make(Path, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, keys...)
}

// Parent returns the path without its last key. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return append(Path{}, p[:len(p)-1]...)
}

// Last returns the final key.
func (p Path) Last() (Key, bool) {
	if len(p) == 0 {
		return Key{}, false
	}
	return p[len(p)-1], true
}

// Equal compares canonical keys elementwise.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].name != other[i].name {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor of, or equal to, p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i].name != prefix[i].name {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	return len(p) < len(other) && other.HasPrefix(p)
}

// Overlaps reports ancestor, equal or descendant relation in either direction.
func (p Path) Overlaps(other Path) bool {
	return p.HasPrefix(other) || other.HasPrefix(p)
}

// String renders the path in dot notation.
func (p Path) String() string {
	return strings.Join(p.keys(), ".")
}

func (p Path) keys() []string {
	keys := make([]string, len(p))
	for i, key := range p {
		keys[i] = key.name
	}
	return keys
}

// canonical is the cache key for the path. Every key is length framed, so
// the root, a single empty key and names containing any byte stay distinct.
func (p Path) canonical() string {
	var b strings.Builder
	for _, key := range p {
		writeCanonicalKey(&b, key)
	}
	return b.String()
}

func writeCanonicalKey(b *strings.Builder, key Key) {
	b.WriteString(strconv.Itoa(len(key.name)))
	b.WriteByte(':')
	b.WriteString(key.name)
}
