package activity

import (
	"context"

	hookstate "github.com/goliatone/go-hookstate"
)

// PluginConfig fills the identity fields of every event the plugin emits.
type PluginConfig struct {
	Name           string
	ActorID        string
	UserID         string
	TenantID       string
	DefinitionCode string
	Recipients     []string

	// Context supplies the context passed to hooks. Defaults to
	// context.Background.
	Context func() context.Context
	// OnError receives hook failures. Callbacks cannot fail a mutation, so
	// errors are dropped when OnError is nil.
	OnError func(error)
}

// Plugin returns a plugin factory that turns state callbacks into activity
// events. The factory yields the same plugin id on every call so attaching it
// twice is a no-op.
func Plugin(emitter *Emitter, cfg PluginConfig) hookstate.PluginFactory {
	name := cfg.Name
	if name == "" {
		name = "activity"
	}
	id := hookstate.NewPluginID(name)
	return func() hookstate.Plugin {
		return hookstate.Plugin{
			ID: id,
			Init: func(*hookstate.Accessor) hookstate.PluginCallbacks {
				p := &statePlugin{emitter: emitter, cfg: cfg}
				return hookstate.PluginCallbacks{
					OnSet:         p.onSet,
					OnDestroy:     p.onDestroy,
					OnBatchFinish: p.onBatchFinish,
				}
			},
		}
	}
}

type statePlugin struct {
	emitter *Emitter
	cfg     PluginConfig
}

func (p *statePlugin) input(path hookstate.Path) StateEventInput {
	return StateEventInput{
		ActorID:        p.cfg.ActorID,
		UserID:         p.cfg.UserID,
		TenantID:       p.cfg.TenantID,
		DefinitionCode: p.cfg.DefinitionCode,
		Recipients:     p.cfg.Recipients,
		Path:           path.String(),
	}
}

func (p *statePlugin) onSet(event hookstate.SetEvent) {
	if !p.emitter.Enabled() {
		return
	}
	input := p.input(event.Path)
	input.OldValue = event.Previous
	input.Changes = describeChanges(event.Changes)

	switch {
	case event.Deleted:
		p.emit(BuildStateDeletedEvent(input))
	case event.Merged != nil:
		input.NewValue = event.Value
		input.Patch = event.Merged
		p.emit(BuildStateMergedEvent(input))
	default:
		input.NewValue = event.Value
		p.emit(BuildStateUpdatedEvent(input))
	}
}

func (p *statePlugin) onDestroy(event hookstate.DestroyEvent) {
	if !p.emitter.Enabled() {
		return
	}
	input := p.input(hookstate.Root)
	input.OldValue = event.State
	p.emit(BuildStateDestroyedEvent(input))
}

func (p *statePlugin) onBatchFinish(event hookstate.BatchEvent) {
	if !p.emitter.Enabled() {
		return
	}
	input := p.input(event.Path)
	input.BatchContext = event.Context
	p.emit(BuildBatchFinishedEvent(input))
}

func (p *statePlugin) emit(event Event) {
	ctx := context.Background()
	if p.cfg.Context != nil {
		if supplied := p.cfg.Context(); supplied != nil {
			ctx = supplied
		}
	}
	if err := p.emitter.Emit(ctx, event); err != nil && p.cfg.OnError != nil {
		p.cfg.OnError(err)
	}
}

func describeChanges(changes hookstate.ChangeSet) []string {
	if len(changes) == 0 {
		return nil
	}
	out := make([]string, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.Kind.String()+":"+change.Path.String())
	}
	return out
}
