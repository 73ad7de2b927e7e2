package tree

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Normalize converts an arbitrary Go value into node form: mappings and
// structs become *Object, slices and arrays become *List, everything else
// is kept as a scalar. Existing nodes are deep copied so the tree never
// aliases caller memory. Mapping keys carrying the deletion marker are
// skipped.
func Normalize(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case *Object, *List:
		return Clone(typed)
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, key := range keys {
			if IsNone(typed[key]) {
				continue
			}
			obj.Set(key, Normalize(typed[key]))
		}
		return obj
	case []any:
		list := &List{items: make([]any, 0, len(typed))}
		for _, item := range typed {
			if IsNone(item) {
				item = absent
			} else {
				item = Normalize(item)
			}
			list.items = append(list.items, item)
		}
		return list
	case string, bool, int, int64, float64:
		return typed
	}
	return normalizeValue(reflect.ValueOf(value))
}

func normalizeValue(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	if isOpaque(v.Type()) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalizeValue(v.Elem())
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		type entry struct {
			key   string
			value reflect.Value
		}
		entries := make([]entry, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: mapKey(iter.Key()), value: iter.Value()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		obj := NewObject()
		for _, e := range entries {
			if e.value.CanInterface() && IsNone(e.value.Interface()) {
				continue
			}
			obj.Set(e.key, normalizeValue(e.value))
		}
		return obj
	case reflect.Struct:
		obj := NewObject()
		normalizeStruct(v, obj)
		return obj
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		fallthrough
	case reflect.Array:
		list := &List{items: make([]any, 0, v.Len())}
		for i := 0; i < v.Len(); i++ {
			list.items = append(list.items, normalizeValue(v.Index(i)))
		}
		return list
	default:
		return v.Interface()
	}
}

func normalizeStruct(v reflect.Value, obj *Object) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag.Get("json") == "" {
			normalizeStruct(v.Field(i), obj)
			continue
		}
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := fieldName(field)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		obj.Set(name, normalizeValue(fv))
	}
}

func fieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func mapKey(key reflect.Value) string {
	if key.Kind() == reflect.String {
		return key.String()
	}
	return fmt.Sprint(key.Interface())
}

// isOpaque reports types that encode themselves and must stay scalar
// (time.Time, big numbers, custom IDs).
func isOpaque(t reflect.Type) bool {
	if t.Kind() != reflect.Struct && t.Kind() != reflect.Array {
		return false
	}
	return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) ||
		reflect.PointerTo(t).Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}

// Clone deep copies a node. Side-channel metadata maps are copied shallowly.
func Clone(node any) any {
	switch typed := node.(type) {
	case *Object:
		out := &Object{
			keys:   append([]string(nil), typed.keys...),
			values: make(map[string]any, len(typed.values)),
			meta:   copyMeta(typed.meta),
		}
		for key, value := range typed.values {
			out.values[key] = Clone(value)
		}
		return out
	case *List:
		out := &List{items: make([]any, len(typed.items)), meta: copyMeta(typed.meta)}
		for i, item := range typed.items {
			out.items[i] = Clone(item)
		}
		return out
	default:
		return node
	}
}

// Export converts a node into plain Go values: *Object becomes
// map[string]any, *List becomes []any with absent slots as nil. The result
// shares no memory with the tree.
func Export(node any) any {
	switch typed := node.(type) {
	case *Object:
		out := make(map[string]any, len(typed.keys))
		for _, key := range typed.keys {
			out[key] = Export(typed.values[key])
		}
		return out
	case *List:
		out := make([]any, len(typed.items))
		for i, item := range typed.items {
			if isAbsent(item) {
				continue
			}
			out[i] = Export(item)
		}
		return out
	default:
		return node
	}
}

func copyMeta(meta map[string]any) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		out[key] = value
	}
	return out
}
