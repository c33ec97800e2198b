package core

import (
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
)

var _ extension.EventHandler = (*Extension)(nil)

// HandleEvent records knowledge base changes in the audit log under
// "core:observed".
func (e *Extension) HandleEvent(_ extension.Context, evt extension.Event) error {
	l := log.Event("core:observed", string(evt.EventType())).Entity("page", evt.EventPage())
	switch ev := evt.(type) {
	case extension.PageWriteEvent:
		l = l.Author(ev.Author).Detail("created", ev.Created)
		if ev.KBID != "" {
			l = l.Detail("kb", ev.KBID)
		}
	case extension.PageDeleteEvent:
		l = l.Detail("count", ev.Count)
	case extension.LinkEvent:
		l = l.Detail("to", ev.To)
	}
	l.Write(nil)
	return nil
}
