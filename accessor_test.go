package hookstate

import (
	"errors"
	"reflect"
	"testing"
)

func TestAccessorsAreCachedPerPath(t *testing.T) {
	state := New(map[string]any{"a": map[string]any{"b": 1}})
	root := state.Root()

	first := root.Field("a").Field("b")
	second := state.Accessor(ParsePath("a.b"))
	if first != second {
		t.Fatalf("expected the same accessor for the same path")
	}
	if root.Index(0) != root.Field("0") {
		t.Fatalf("index and field spelling must share an accessor")
	}
	if err := first.Set(2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if root.At(ParsePath("a.b")) != first {
		t.Fatalf("value writes must not rebuild accessors")
	}
}

func TestAccessorsRebuiltAfterDeleteAndKindChange(t *testing.T) {
	state := New(map[string]any{"a": map[string]any{"b": 1}, "c": 1})
	root := state.Root()

	a := root.Field("a")
	b := a.Field("b")
	c := root.Field("c")

	if err := a.Set([]any{1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if root.Field("a") != a {
		t.Fatalf("the accessor at the changed path itself stays valid")
	}
	if a.Field("b") == b {
		t.Fatalf("expected a new accessor below a container whose kind changed")
	}
	if root.Field("c") != c {
		t.Fatalf("unrelated accessors must survive")
	}

	if err := c.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if root.Field("c") == c {
		t.Fatalf("expected a new accessor after the key was removed")
	}
}

func TestObservedAccessorsAreDistinct(t *testing.T) {
	state := New(map[string]any{"a": 1})
	obs := state.Observe()

	tracked := obs.Root().Field("a")
	if tracked == state.Root().Field("a") {
		t.Fatalf("observed and untracked accessors must differ")
	}
	if tracked.Observation() != obs {
		t.Fatalf("expected accessor bound to observation")
	}
	if tracked.Observed(nil) != state.Root().Field("a") {
		t.Fatalf("Observed(nil) must return the untracked accessor")
	}
	if state.Root().Field("a").Observed(obs) != tracked {
		t.Fatalf("Observed(obs) must return the cached tracked accessor")
	}
}

func TestAccessorPathIsACopy(t *testing.T) {
	state := New(map[string]any{})
	a := state.Root().Field("x")
	path := a.Path()
	path[0] = Field("y")
	if a.Path().String() != "x" {
		t.Fatalf("accessor path was mutated through its copy")
	}
}

func TestKeysAndLen(t *testing.T) {
	state := New(map[string]any{"list": []any{"a", "b"}, "scalar": 1})
	root := state.Root()

	if err := root.Field("z").Set(1); err != nil {
		t.Fatalf("set: %v", err)
	}
	keys, err := root.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"list", "scalar", "z"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i, key := range keys {
		if key.String() != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}

	listKeys, _ := root.Field("list").Keys()
	if len(listKeys) != 2 || !listKeys[1].IsIndex() {
		t.Fatalf("expected index keys for a list, got %v", listKeys)
	}
	if scalarKeys, _ := root.Field("scalar").Keys(); scalarKeys != nil {
		t.Fatalf("scalars have no keys, got %v", scalarKeys)
	}
	if n, _ := root.Field("missing").Len(); n != 0 {
		t.Fatalf("missing paths have no keys, got %d", n)
	}
}

func TestGetMissingPathIsNil(t *testing.T) {
	state := New(map[string]any{"a": 1})
	value, err := state.Root().At(ParsePath("x.y.z")).Get()
	if err != nil || value != nil {
		t.Fatalf("expected nil, nil for a missing path, got %v %v", value, err)
	}
}

func TestOrNull(t *testing.T) {
	state := New(nil)
	root := state.Root()

	got, err := root.OrNull()
	if err != nil || got != nil {
		t.Fatalf("expected nil accessor for nil root, got %v %v", got, err)
	}

	if err := root.Set(map[string]any{"field": "a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = root.OrNull()
	if err != nil || got == nil {
		t.Fatalf("expected accessor once root has a value, got %v %v", got, err)
	}
	if value := mustGet(t, got.Field("field")); value != "a" {
		t.Fatalf("expected a, got %v", value)
	}
}

func TestValuePanicsWhenDestroyed(t *testing.T) {
	state := New(map[string]any{"a": 1})
	a := state.Root().Field("a")
	if a.Value() != 1 {
		t.Fatalf("expected 1")
	}
	state.Destroy()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrDestroyed) {
			t.Fatalf("expected ErrDestroyed panic, got %v", r)
		}
	}()
	a.Value()
}

func TestDestroyedStateRejectsOperations(t *testing.T) {
	state := New(map[string]any{"a": 1})
	a := state.Root().Field("a")
	state.Destroy()
	state.Destroy()

	if !state.Destroyed() {
		t.Fatalf("expected destroyed")
	}
	if _, err := a.Get(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("get: expected ErrDestroyed, got %v", err)
	}
	if err := a.Set(2); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("set: expected ErrDestroyed, got %v", err)
	}
	if err := a.Merge(2); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("merge: expected ErrDestroyed, got %v", err)
	}
	if _, err := a.Keys(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("keys: expected ErrDestroyed, got %v", err)
	}
	if _, err := state.Snapshot(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("snapshot: expected ErrDestroyed, got %v", err)
	}
	if _, err := state.Subscribe(nil, func(ChangeSet) {}); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("subscribe: expected ErrDestroyed, got %v", err)
	}
	if a.Promised() {
		t.Fatalf("a destroyed state is never promised")
	}
	if err := a.Err(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("err: expected ErrDestroyed, got %v", err)
	}
	if err := state.Err(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("state err: expected ErrDestroyed, got %v", err)
	}
	result := a.Map(
		func(*Accessor) any { return "value" },
		func() any { return "pending" },
		func(err error) any { return err },
	)
	if err, ok := result.(error); !ok || !errors.Is(err, ErrDestroyed) {
		t.Fatalf("map: expected ErrDestroyed branch, got %v", result)
	}
}

func TestMetaIsSideChannel(t *testing.T) {
	state := New(map[string]any{"form": map[string]any{"name": "x"}, "n": 1})
	calls := recordChanges(t, state)
	form := state.Root().Field("form")

	if err := form.SetMeta("touched", true); err != nil {
		t.Fatalf("set meta: %v", err)
	}
	if v, ok := form.Meta("touched"); !ok || v != true {
		t.Fatalf("expected meta value, got %v %v", v, ok)
	}
	if len(*calls) != 0 {
		t.Fatalf("metadata writes must not notify")
	}
	if got := mustGet(t, form); !reflect.DeepEqual(got, map[string]any{"name": "x"}) {
		t.Fatalf("metadata must not appear in values, got %#v", got)
	}
	if keys, _ := form.Keys(); len(keys) != 1 {
		t.Fatalf("metadata must not be enumerated, got %v", keys)
	}

	if err := form.Field("name").Set("y"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := form.Meta("touched"); !ok {
		t.Fatalf("writing a child keeps the container metadata")
	}

	if err := state.Root().Field("n").SetMeta("x", 1); !errors.Is(err, ErrNotContainer) {
		t.Fatalf("expected ErrNotContainer on scalar, got %v", err)
	}
	if err := state.Root().Field("missing").SetMeta("x", 1); !errors.Is(err, ErrPathUnreachable) {
		t.Fatalf("expected ErrPathUnreachable on missing path, got %v", err)
	}
}

func TestSnapshotDoesNotRecord(t *testing.T) {
	state := New(map[string]any{"a": 1})
	obs := state.Observe()
	_ = obs.Root()
	snapshot, err := state.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !reflect.DeepEqual(snapshot, map[string]any{"a": 1}) {
		t.Fatalf("unexpected snapshot %#v", snapshot)
	}
	if obs.Len() != 0 {
		t.Fatalf("snapshot must not record reads")
	}
}

func TestEmptyKeyIsNotTheRoot(t *testing.T) {
	state := New(map[string]any{"": 1, "other": 2})
	root := state.Root()
	empty := root.Field("")

	if empty == root {
		t.Fatalf("the empty key must not resolve to the root accessor")
	}
	if empty.Path().Len() != 1 {
		t.Fatalf("expected a one key path, got %v", empty.Path())
	}
	if value := mustGet(t, empty); value != 1 {
		t.Fatalf("expected 1 at the empty key, got %v", value)
	}
	if err := empty.Set(5); err != nil {
		t.Fatalf("set: %v", err)
	}
	snapshot, err := state.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := map[string]any{"": 5, "other": 2}
	if !reflect.DeepEqual(snapshot, want) {
		t.Fatalf("expected %v, got %v", want, snapshot)
	}

	obs := state.Observe()
	if _, err := obs.Root().Get(); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := obs.Root().Field("").Get(); err != nil {
		t.Fatalf("get: %v", err)
	}
	if obs.Len() != 2 {
		t.Fatalf("root and empty key reads must be recorded apart, got %d", obs.Len())
	}
}

func TestKeysContainingSeparatorBytesStayDistinct(t *testing.T) {
	state := New(map[string]any{
		"a\x1fb": 1,
		"a":      map[string]any{"b": 2},
	})
	root := state.Root()
	joined := root.Field("a\x1fb")
	nested := root.Field("a").Field("b")

	if joined == nested {
		t.Fatalf("a key holding a separator byte must not alias a nested path")
	}
	if value := mustGet(t, joined); value != 1 {
		t.Fatalf("expected 1, got %v", value)
	}
	if value := mustGet(t, nested); value != 2 {
		t.Fatalf("expected 2, got %v", value)
	}
	if root.Field("a\x1fb") != joined {
		t.Fatalf("expected the cached accessor back for the same key")
	}
}
