package activity

import (
	"strings"
	"time"
)

const (
	// ObjectTypeState is the object type of events about a tree location.
	ObjectTypeState = "state"
	// ObjectTypeBatch is the object type of batch boundary events.
	ObjectTypeBatch = "state.batch"

	// RootObjectID identifies the root location, whose dot path is empty.
	RootObjectID = "root"
)

// StateEventInput describes the common fields for state lifecycle events.
type StateEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Path           string
	OldValue       any
	NewValue       any
	Patch          any
	Changes        []string
	BatchContext   any
	OccurredAt     time.Time
}

// BuildStateUpdatedEvent constructs an event for a set at a path.
func BuildStateUpdatedEvent(input StateEventInput) Event {
	return buildStateEvent("state.updated", ObjectTypeState, input)
}

// BuildStateMergedEvent constructs an event for a merge at a path.
func BuildStateMergedEvent(input StateEventInput) Event {
	return buildStateEvent("state.merged", ObjectTypeState, input)
}

// BuildStateDeletedEvent constructs an event for a deletion at a path.
func BuildStateDeletedEvent(input StateEventInput) Event {
	return buildStateEvent("state.deleted", ObjectTypeState, input)
}

// BuildStateDestroyedEvent constructs an event for the end of a state.
func BuildStateDestroyedEvent(input StateEventInput) Event {
	return buildStateEvent("state.destroyed", ObjectTypeState, input)
}

// BuildBatchFinishedEvent constructs an event for an outermost batch boundary.
func BuildBatchFinishedEvent(input StateEventInput) Event {
	return buildStateEvent("state.batch.finished", ObjectTypeBatch, input)
}

func buildStateEvent(verb, objectType string, input StateEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if input.Patch != nil {
		metadata = ensureMetadata(metadata)
		metadata["patch"] = input.Patch
	}
	if len(input.Changes) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["changes"] = append([]string{}, input.Changes...)
	}
	if input.BatchContext != nil {
		metadata = ensureMetadata(metadata)
		metadata["batch_context"] = input.BatchContext
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = RootObjectID
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
