package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	hookstate "github.com/goliatone/go-hookstate"
	"github.com/goliatone/go-hookstate/pkg/activity"
	"github.com/goliatone/go-hookstate/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()

	event := activity.Event{
		Verb:           "state.updated",
		ActorID:        actorID.String(),
		UserID:         userID.String(),
		TenantID:       tenantID.String(),
		ObjectType:     activity.ObjectTypeState,
		ObjectID:       "feature.flag",
		Channel:        "state",
		DefinitionCode: "state:update",
		Recipients:     []string{"recipient@example.com"},
		Metadata: map[string]any{
			"new_value": true,
		},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.Verb != "state.updated" || record.ObjectType != "state" || record.ObjectID != "feature.flag" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["definition_code"] != "state:update" {
		t.Fatalf("expected definition_code metadata got %v", record.Data["definition_code"])
	}
	if record.Data["path"] != "feature.flag" {
		t.Fatalf("expected path derived from object id got %v", record.Data["path"])
	}
	if record.Data["new_value"] != true {
		t.Fatalf("expected metadata passthrough got %v", record.Data["new_value"])
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "recipient@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifyNonUUIDIdentityIsNil(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{
		Verb:       "state.deleted",
		ActorID:    "not-a-uuid",
		ObjectType: activity.ObjectTypeState,
		ObjectID:   activity.RootObjectID,
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil actor, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].Data["path"] != "" {
		t.Fatalf("expected root path, got %v", sink.records[0].Data["path"])
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookReceivesPluginEvents(t *testing.T) {
	sink := &recordingSink{err: errors.New("store offline")}
	emitter := activity.NewEmitter(activity.Hooks{usersink.Hook{Sink: sink}}, activity.Config{Enabled: true})

	var failures int
	state := hookstate.New(
		map[string]any{"count": 0},
		hookstate.WithPlugins(activity.Plugin(emitter, activity.PluginConfig{
			UserID:  uuid.NewString(),
			OnError: func(error) { failures++ },
		})),
	)
	if err := state.Root().Field("count").Set(1); err != nil {
		t.Fatalf("set: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].UserID == uuid.Nil {
		t.Fatalf("expected user id to be parsed")
	}
	if sink.records[0].Data["path"] != "count" {
		t.Fatalf("expected path metadata, got %v", sink.records[0].Data["path"])
	}
	if failures != 1 {
		t.Fatalf("expected sink error to be reported once, got %d", failures)
	}
}
