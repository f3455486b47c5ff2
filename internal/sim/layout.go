package sim

import (
	"pkt.systems/pslog"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// layoutActor is the layout-side half of a sim pipeline. It reports the
// armed viewport constraints once and then idles until told to exit.
type layoutActor struct {
	id       schema.PipelineID
	tx       ipc.Sender[schema.LayoutMsg]
	control  ipc.Receiver[schema.LayoutControlMsg]
	viewport *schema.ViewportConstraints
	log      pslog.Logger
}

func (l *layoutActor) run() {
	defer func() {
		_ = l.tx.Close()
		_ = l.control.Close()
	}()
	if l.viewport != nil {
		if err := l.tx.Send(schema.ViewportConstrained{Pipeline: l.id, Constraints: *l.viewport}); err != nil {
			return
		}
		l.log.Debug("sim viewport reported", "width", l.viewport.Width, "height", l.viewport.Height)
	}
	for {
		msg, err := l.control.Receive()
		if err != nil {
			l.log.Debug("sim layout channel closed")
			return
		}
		switch msg.(type) {
		case schema.ExitNow:
			l.log.Debug("sim layout actor exiting")
			return
		case schema.TickAnimations:
			l.log.Trace("sim animations ticked")
		default:
			l.log.Trace("sim layout control ignored", "kind", string(msg.LayoutControlKind()))
		}
	}
}
