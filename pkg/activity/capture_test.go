package activity

import (
	"context"
	"errors"
	"testing"
)

func TestCaptureHookReportsVerbsAndPaths(t *testing.T) {
	capture := &CaptureHook{}
	ctx := context.Background()
	events := []Event{
		BuildStateUpdatedEvent(StateEventInput{Path: "user.name"}),
		BuildBatchFinishedEvent(StateEventInput{}),
		BuildStateMergedEvent(StateEventInput{}),
	}
	for _, event := range events {
		if err := capture.Notify(ctx, event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if capture.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", capture.Len())
	}
	verbs := capture.Verbs()
	if len(verbs) != 3 || verbs[0] != "state.updated" || verbs[1] != "state.batch.finished" || verbs[2] != "state.merged" {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	paths := capture.Paths()
	if len(paths) != 2 || paths[0] != "user.name" || paths[1] != "" {
		t.Fatalf("expected batch skipped and root as empty path, got %q", paths)
	}
	last, ok := capture.Last()
	if !ok || last.Verb != "state.merged" {
		t.Fatalf("unexpected last event %+v %v", last, ok)
	}

	capture.Reset()
	if capture.Len() != 0 {
		t.Fatalf("expected reset to drop events")
	}
	if _, ok := capture.Last(); ok {
		t.Fatalf("expected no last event after reset")
	}
}

func TestCaptureHookKeepsEventBeforeReturningErr(t *testing.T) {
	capture := &CaptureHook{Err: errors.New("sink down")}
	err := capture.Notify(context.Background(), BuildStateDeletedEvent(StateEventInput{Path: "a"}))
	if err == nil || err.Error() != "sink down" {
		t.Fatalf("expected configured error, got %v", err)
	}
	if capture.Len() != 1 {
		t.Fatalf("expected event kept, got %d", capture.Len())
	}
}
