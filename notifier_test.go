package hookstate

import (
	"errors"
	"testing"
)

func TestObservationOnlyNotifiedForPathsItRead(t *testing.T) {
	state := New(map[string]any{"field1": 0, "field2": "str"})
	obs := state.Observe()
	if _, err := obs.Root().Field("field1").Get(); err != nil {
		t.Fatalf("get: %v", err)
	}

	calls := 0
	if _, err := obs.Subscribe(func(ChangeSet) { calls++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := state.Root().Field("field2").Set("updated"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 0 {
		t.Fatalf("writing an unread field must not notify, got %d", calls)
	}
	if err := state.Root().Field("field1").Set(1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one notification, got %d", calls)
	}
}

func TestObservationMatchingRules(t *testing.T) {
	cases := []struct {
		name   string
		read   func(root *Accessor)
		write  func(root *Accessor) error
		notify bool
	}{
		{
			name:   "value read sees descendant write",
			read:   func(root *Accessor) { root.Field("user").Get() },
			write:  func(root *Accessor) error { return root.At(ParsePath("user.name")).Set("b") },
			notify: true,
		},
		{
			name:   "value read sees ancestor write",
			read:   func(root *Accessor) { root.At(ParsePath("user.name")).Get() },
			write:  func(root *Accessor) error { return root.Field("user").Set(map[string]any{"name": "c"}) },
			notify: true,
		},
		{
			name:   "value read ignores sibling write",
			read:   func(root *Accessor) { root.At(ParsePath("user.name")).Get() },
			write:  func(root *Accessor) error { return root.At(ParsePath("user.age")).Set(3) },
			notify: false,
		},
		{
			name:   "keys read ignores child value write",
			read:   func(root *Accessor) { root.Field("user").Keys() },
			write:  func(root *Accessor) error { return root.At(ParsePath("user.name")).Set("b") },
			notify: false,
		},
		{
			name:   "keys read sees added key",
			read:   func(root *Accessor) { root.Field("user").Keys() },
			write:  func(root *Accessor) error { return root.At(ParsePath("user.email")).Set("e") },
			notify: true,
		},
		{
			name:   "keys read sees replaced container",
			read:   func(root *Accessor) { root.Field("user").Keys() },
			write:  func(root *Accessor) error { return root.Field("user").Set(map[string]any{}) },
			notify: true,
		},
		{
			name:   "status read sees root write",
			read:   func(root *Accessor) { root.Field("user").Promised() },
			write:  func(root *Accessor) error { return root.Set(map[string]any{}) },
			notify: true,
		},
		{
			name:   "status read ignores nested write",
			read:   func(root *Accessor) { root.Field("user").Err() },
			write:  func(root *Accessor) error { return root.At(ParsePath("user.name")).Set("b") },
			notify: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := New(map[string]any{"user": map[string]any{"name": "a", "age": 1}})
			obs := state.Observe()
			tc.read(obs.Root())

			notified := false
			if _, err := obs.Subscribe(func(ChangeSet) { notified = true }); err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			if err := tc.write(state.Root()); err != nil {
				t.Fatalf("write: %v", err)
			}
			if notified != tc.notify {
				t.Fatalf("expected notify=%v, got %v", tc.notify, notified)
			}
		})
	}
}

func TestObservationResetForgetsReads(t *testing.T) {
	state := New(map[string]any{"a": 1, "b": 2})
	obs := state.Observe()
	obs.Root().Field("a").Get()
	obs.Root().Field("a").Get()
	if obs.Len() != 1 {
		t.Fatalf("repeated reads record once, got %d", obs.Len())
	}
	obs.Reset()
	obs.Root().Field("b").Get()
	paths := obs.Paths()
	if len(paths) != 1 || paths[0].String() != "b" {
		t.Fatalf("expected only b after reset, got %v", paths)
	}
}

func TestBatchDeliversOneNotification(t *testing.T) {
	state := New(map[string]any{"a": 0, "b": 0})
	calls := recordChanges(t, state)
	root := state.Root()

	err := state.Batch(func() error {
		if err := root.Field("a").Set(1); err != nil {
			return err
		}
		return root.Batch(func(inner *Accessor) error {
			if err := inner.Field("b").Set(1); err != nil {
				return err
			}
			return inner.Field("a").Set(2)
		}, nil)
	}, "outer")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected a single coalesced notification, got %d", len(*calls))
	}
	changes := (*calls)[0]
	if len(changes) != 2 || !changes.Contains(ParsePath("a"), ChangeValue) || !changes.Contains(ParsePath("b"), ChangeValue) {
		t.Fatalf("expected deduplicated union, got %v", changes)
	}
	if value := mustGet(t, root.Field("a")); value != 2 {
		t.Fatalf("expected last write to win, got %v", value)
	}
}

func TestBatchErrorStillFlushes(t *testing.T) {
	state := New(map[string]any{"a": 0})
	calls := recordChanges(t, state)
	boom := errors.New("boom")

	err := state.Batch(func() error {
		if err := state.Root().Field("a").Set(1); err != nil {
			return err
		}
		return boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected batch error returned, got %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("committed writes are still delivered, got %d", len(*calls))
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	state := New(map[string]any{"a": 0})
	calls := 0
	sub, err := state.Subscribe(nil, func(ChangeSet) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !sub.Active() {
		t.Fatalf("expected active subscription")
	}
	sub.Unsubscribe()
	sub.Unsubscribe()
	if sub.Active() {
		t.Fatalf("expected inactive subscription")
	}
	if err := state.Root().Field("a").Set(1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 0 {
		t.Fatalf("unsubscribed callback ran %d times", calls)
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	state := New(map[string]any{"a": 0})
	var second *Subscription
	secondCalls := 0
	if _, err := state.Subscribe(nil, func(ChangeSet) { second.Unsubscribe() }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, _ = state.Subscribe(nil, func(ChangeSet) { secondCalls++ })

	if err := state.Root().Field("a").Set(1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if secondCalls != 0 {
		t.Fatalf("a subscription removed mid-delivery must not run")
	}
}

func TestPanickingSubscriberIsLogged(t *testing.T) {
	var events []LogEvent
	logger := LoggerFunc(func(event LogEvent) { events = append(events, event) })
	state := New(map[string]any{"a": 0}, WithLogger(logger))

	if _, err := state.Subscribe(nil, func(ChangeSet) { panic("render failed") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	survivor := 0
	if _, err := state.Subscribe(nil, func(ChangeSet) { survivor++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := state.Root().Field("a").Set(1); err != nil {
		t.Fatalf("set must succeed despite the panic: %v", err)
	}
	if value := mustGet(t, state.Root().Field("a")); value != 1 {
		t.Fatalf("mutation must stay committed, got %v", value)
	}
	if survivor != 1 {
		t.Fatalf("later subscribers must still run")
	}
	if len(events) != 1 || events[0].Kind != LogCallbackPanic || events[0].Detail != "subscriber" {
		t.Fatalf("expected one panic log event, got %+v", events)
	}
}

func TestSubscribeRejectsNilCallback(t *testing.T) {
	state := New(nil)
	if _, err := state.Subscribe(nil, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}
