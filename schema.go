package hookstate

import (
	"fmt"

	"github.com/goliatone/go-hookstate/internal/tree"
)

// FieldDescriptor describes a leaf path and the Go type stored there.
type FieldDescriptor struct {
	Path string
	Type string
}

// Describe records a value read and lists the leaf paths under the accessor
// in tree order. Empty mappings and lists are reported as leaves; lists are
// typed by their first present element.
func (a *Accessor) Describe() ([]FieldDescriptor, error) {
	if err := a.live("describe"); err != nil {
		return nil, err
	}
	a.record(readValue)
	if a.state.promised || a.state.err != nil {
		return []FieldDescriptor{}, nil
	}
	node, _ := a.state.store.get(a.path)
	descriptors := deriveFieldDescriptors(node, a.path)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors, nil
}

func deriveFieldDescriptors(node any, prefix Path) []FieldDescriptor {
	switch typed := node.(type) {
	case nil:
		return nil
	case *tree.Object:
		if typed.Len() == 0 {
			return []FieldDescriptor{{Path: prefix.String(), Type: "map[string]any"}}
		}
		var fields []FieldDescriptor
		for _, key := range typed.Keys() {
			child, _ := typed.Get(key)
			fields = append(fields, deriveFieldDescriptors(child, prefix.Append(Field(key)))...)
		}
		return fields
	case *tree.List:
		elementType := "any"
		for i := 0; i < typed.Len(); i++ {
			if item, ok := typed.Get(i); ok {
				elementType = typeName(item)
				break
			}
		}
		return []FieldDescriptor{{Path: prefix.String(), Type: "[]" + elementType}}
	default:
		return []FieldDescriptor{{Path: prefix.String(), Type: typeName(typed)}}
	}
}

func typeName(node any) string {
	switch node.(type) {
	case nil:
		return "nil"
	case *tree.Object:
		return "map[string]any"
	case *tree.List:
		return "[]any"
	}
	return fmt.Sprintf("%T", node)
}
