package hookstate

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-hookstate/internal/tree"
)

// store owns the value tree. It only performs structural mutation and
// reports what changed; tracking and notification live in State.
type store struct {
	root any
}

func (s *store) get(path Path) (any, bool) {
	return tree.Lookup(s.root, path.keys())
}

// set replaces the value at path. value is either the deletion marker or a
// normalised node.
func (s *store) set(path Path, value any) (ChangeSet, error) {
	var changes ChangeSet
	if path.IsRoot() {
		s.root = value
		changes.value(path)
		return changes, nil
	}

	parentPath := path.Parent()
	parent, ok := s.get(parentPath)
	if !ok {
		return nil, ErrPathUnreachable
	}
	key, _ := path.Last()

	switch container := parent.(type) {
	case *tree.Object:
		if tree.IsNone(value) {
			if container.Delete(key.String()) {
				changes.value(path)
				changes.keys(parentPath)
			}
			return changes, nil
		}
		if added := container.Set(key.String(), value); added {
			changes.value(path)
			changes.keys(parentPath)
			return changes, nil
		}
		changes.value(path)
		return changes, nil
	case *tree.List:
		index, ok := key.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a list index", ErrInvalidKey, key.String())
		}
		if tree.IsNone(value) {
			length := container.Len()
			if !container.RemoveAt(index) {
				return changes, nil
			}
			for i := index; i < length; i++ {
				changes.value(parentPath.Append(Index(i)))
			}
			changes.keys(parentPath)
			return changes, nil
		}
		grew := container.Set(index, value)
		changes.value(path)
		if grew {
			changes.keys(parentPath)
		}
		return changes, nil
	case nil:
		return nil, ErrPathUnreachable
	default:
		return nil, ErrNotContainer
	}
}

// merge applies patch according to the shape of the current value.
func (s *store) merge(path Path, patch any) (ChangeSet, error) {
	current, ok := s.get(path)
	if !ok {
		return s.set(path, normalizeWrite(patch))
	}

	switch node := current.(type) {
	case *tree.Object:
		entries, isMapping := patchEntries(patch)
		if !isMapping {
			return s.set(path, normalizeWrite(patch))
		}
		return mergeObject(path, node, entries), nil
	case *tree.List:
		if items, isList := patchList(patch); isList {
			var changes ChangeSet
			if len(items) == 0 {
				return changes, nil
			}
			start := node.Len()
			node.Append(items...)
			for i := range items {
				changes.value(path.Append(Index(start + i)))
			}
			changes.keys(path)
			return changes, nil
		}
		entries, isMapping := patchEntries(patch)
		if !isMapping {
			return s.set(path, normalizeWrite(patch))
		}
		return mergeList(path, node, entries)
	case string:
		suffix, isString := patch.(string)
		if !isString {
			suffix = fmt.Sprint(patch)
		}
		return s.set(path, node+suffix)
	default:
		return s.set(path, normalizeWrite(patch))
	}
}

type patchEntry struct {
	key   string
	value any
}

func mergeObject(path Path, node *tree.Object, entries []patchEntry) ChangeSet {
	var changes ChangeSet
	keysChanged := false
	for _, entry := range entries {
		if tree.IsNone(entry.value) {
			if node.Delete(entry.key) {
				changes.value(path.Append(Field(entry.key)))
				keysChanged = true
			}
			continue
		}
		if node.Set(entry.key, tree.Normalize(entry.value)) {
			keysChanged = true
		}
		changes.value(path.Append(Field(entry.key)))
	}
	if keysChanged {
		changes.keys(path)
	}
	return changes
}

// mergeList applies an index patch. Deleted indices leave holes; only the
// trailing run of holes is trimmed from the length.
func mergeList(path Path, node *tree.List, entries []patchEntry) (ChangeSet, error) {
	type indexed struct {
		index int
		value any
	}
	patches := make([]indexed, 0, len(entries))
	for _, entry := range entries {
		index, ok := tree.ParseIndex(entry.key)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a list index", ErrInvalidKey, entry.key)
		}
		patches = append(patches, indexed{index: index, value: entry.value})
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].index < patches[j].index })

	var changes ChangeSet
	keysChanged := false
	for _, p := range patches {
		if tree.IsNone(p.value) {
			if node.Clear(p.index) {
				changes.value(path.Append(Index(p.index)))
			}
			continue
		}
		if node.Set(p.index, tree.Normalize(p.value)) {
			keysChanged = true
		}
		changes.value(path.Append(Index(p.index)))
	}
	if node.TrimAbsent() > 0 {
		keysChanged = true
	}
	if keysChanged {
		changes.keys(path)
	}
	return changes, nil
}

// patchEntries extracts raw key/value pairs from a mapping patch, keeping
// deletion markers intact. Entries are sorted by key so insertion order is
// deterministic.
func patchEntries(patch any) ([]patchEntry, bool) {
	switch typed := patch.(type) {
	case map[string]any:
		entries := make([]patchEntry, 0, len(typed))
		for key, value := range typed {
			entries = append(entries, patchEntry{key: key, value: value})
		}
		sortEntries(entries)
		return entries, true
	case map[int]any:
		entries := make([]patchEntry, 0, len(typed))
		for key, value := range typed {
			entries = append(entries, patchEntry{key: fmt.Sprint(key), value: value})
		}
		sortEntries(entries)
		return entries, true
	case *tree.Object:
		entries := make([]patchEntry, 0, typed.Len())
		for _, key := range typed.Keys() {
			value, _ := typed.Get(key)
			entries = append(entries, patchEntry{key: key, value: value})
		}
		return entries, true
	}

	rv := reflect.ValueOf(patch)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Map:
		entries := make([]patchEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, patchEntry{key: fmt.Sprint(iter.Key().Interface()), value: iter.Value().Interface()})
		}
		sortEntries(entries)
		return entries, true
	case reflect.Struct:
		obj, ok := tree.Normalize(rv.Interface()).(*tree.Object)
		if !ok {
			return nil, false
		}
		return patchEntries(obj)
	}
	return nil, false
}

func sortEntries(entries []patchEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
}

// patchList returns the normalised elements of a list patch. Deletion
// markers inside an appended list are dropped.
func patchList(patch any) ([]any, bool) {
	switch typed := patch.(type) {
	case []any:
		items := make([]any, 0, len(typed))
		for _, item := range typed {
			if tree.IsNone(item) {
				continue
			}
			items = append(items, tree.Normalize(item))
		}
		return items, true
	case *tree.List:
		return listItems(typed), true
	case []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(patch)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	list, ok := tree.Normalize(patch).(*tree.List)
	if !ok {
		return nil, false
	}
	return listItems(list), true
}

func listItems(list *tree.List) []any {
	items := make([]any, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		item, ok := list.Get(i)
		if !ok {
			continue
		}
		items = append(items, tree.Clone(item))
	}
	return items
}

func normalizeWrite(value any) any {
	if tree.IsNone(value) {
		return value
	}
	return tree.Normalize(value)
}
