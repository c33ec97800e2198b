// events.go defines the notifications extensions receive after knowledge
// base changes. Events are observed after the fact: a handler cannot veto
// the operation and its error is logged, never returned to the caller.

package extension

import "github.com/jpl-au/pim/internal/log"

// EventType identifies the kind of event.
type EventType string

const (
	EventPageWrite   EventType = "page:write"
	EventPageDelete  EventType = "page:delete"
	EventPageRestore EventType = "page:restore"
	EventLinkCreate  EventType = "link:create"
	EventLinkRemove  EventType = "link:remove"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	EventPage() string
}

// PageWriteEvent is fired after a page is created or edited.
type PageWriteEvent struct {
	PageID  string
	KBID    string
	Author  string
	Created bool
}

func (e PageWriteEvent) EventType() EventType { return EventPageWrite }
func (e PageWriteEvent) EventPage() string    { return e.PageID }

// PageDeleteEvent is fired after a page and its descendants are soft-deleted.
// Count includes the page itself.
type PageDeleteEvent struct {
	PageID string
	Count  int
}

func (e PageDeleteEvent) EventType() EventType { return EventPageDelete }
func (e PageDeleteEvent) EventPage() string    { return e.PageID }

// PageRestoreEvent is fired after a page leaves the trash.
type PageRestoreEvent struct {
	PageID string
}

func (e PageRestoreEvent) EventType() EventType { return EventPageRestore }
func (e PageRestoreEvent) EventPage() string    { return e.PageID }

// LinkEvent is fired after a page link is created or removed.
type LinkEvent struct {
	From    string
	To      string
	Created bool // true=created, false=removed
}

func (e LinkEvent) EventType() EventType {
	if e.Created {
		return EventLinkCreate
	}
	return EventLinkRemove
}
func (e LinkEvent) EventPage() string { return e.From }

// EventHandler is implemented by extensions that want to receive events.
type EventHandler interface {
	HandleEvent(ctx Context, e Event) error
}

// Fire delivers e to every registered EventHandler. A nil ctx means the
// store was never opened, so nothing is delivered.
func Fire(ctx Context, e Event) {
	if ctx == nil {
		return
	}
	for _, ext := range All() {
		h, ok := ext.(EventHandler)
		if !ok {
			continue
		}
		if err := h.HandleEvent(ctx, e); err != nil {
			log.Event("event:error", "error").
				Detail("ext", ext.Name()).
				Detail("event", string(e.EventType())).
				Write(err)
		}
	}
}
