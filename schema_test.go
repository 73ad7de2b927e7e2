package hookstate

import (
	"reflect"
	"testing"
)

func TestDescribeListsLeavesInTreeOrder(t *testing.T) {
	state := New(map[string]any{"user": map[string]any{"name": "ada"}})
	root := state.Root()
	if err := root.At(ParsePath("user.age")).Set(36); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := root.Field("tags").Set([]any{None, "a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := root.Field("empty").Set(map[string]any{}); err != nil {
		t.Fatalf("set: %v", err)
	}

	fields, err := root.Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	want := []FieldDescriptor{
		{Path: "user.name", Type: "string"},
		{Path: "user.age", Type: "int"},
		{Path: "tags", Type: "[]string"},
		{Path: "empty", Type: "map[string]any"},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("expected %+v, got %+v", want, fields)
	}

	nested, err := root.Field("user").Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(nested) != 2 || nested[0].Path != "user.name" {
		t.Fatalf("descriptors must carry full paths, got %+v", nested)
	}
}

func TestDescribeEmptyStates(t *testing.T) {
	pending := New(NewPromise())
	fields, err := pending.Root().Describe()
	if err != nil || len(fields) != 0 || fields == nil {
		t.Fatalf("pending state describes as empty, got %v %v", fields, err)
	}

	state := New(map[string]any{"list": []any{}})
	fields, _ = state.Root().Describe()
	if len(fields) != 1 || fields[0].Type != "[]any" {
		t.Fatalf("empty list is a leaf typed []any, got %+v", fields)
	}
}
