package browser

import "context"

// EventType identifies a signal emitted by the host surface.
type EventType int

const (
	// EventLoadFinished fires when the requested page finished loading.
	EventLoadFinished EventType = iota
	// EventReloaded fires when the page reloaded on its own, typically
	// after a human solved a verification challenge.
	EventReloaded
	// EventDismissed fires when the user closed the surface.
	EventDismissed
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventLoadFinished:
		return "load_finished"
	case EventReloaded:
		return "reloaded"
	case EventDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Event is one surface signal.
type Event struct {
	Type EventType
}

// Surface is the host-provided browser capability: load a page, run a
// script against it, toggle visibility, and surface navigation signals.
// The pipeline never renders or manages the surface's UI.
type Surface interface {
	// Load starts navigation to a URL. Completion is signalled through
	// Events with EventLoadFinished.
	Load(ctx context.Context, url string) error
	// Execute runs a script in the page and returns its postback message.
	Execute(ctx context.Context, script string) (string, error)
	// SetVisible toggles the surface. It stays hidden except for
	// human verification detours.
	SetVisible(visible bool)
	// Events emits surface signals. The channel is owned by the surface
	// and stays open for its lifetime.
	Events() <-chan Event
}
