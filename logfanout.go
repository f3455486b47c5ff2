package switchyard

import "pkt.systems/switchyard/internal/diag"

// logFanout forwards every attributed record to each sink in order.
type logFanout struct {
	sinks []diag.Sink
}

func (f logFanout) OnLogEntry(rec diag.Record) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnLogEntry(rec)
	}
}
