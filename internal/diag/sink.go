// Package diag collects the log reports the supervisor attributes to
// pipelines: panics, errors, and warnings. Records land in a bounded ring
// for inspection, fan out to subscribers, and optionally append to a JSONL
// file for post-mortems.
package diag

import (
	"context"
	"os"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/schema"
)

// Record is one attributed log report.
type Record struct {
	Seq      uint64            `json:"seq"`
	Time     time.Time         `json:"time"`
	Pipeline schema.PipelineID `json:"pipeline,omitempty"`
	Actor    string            `json:"actor,omitempty"`
	Entry    schema.LogEntry   `json:"entry"`
}

// Sink consumes records as the supervisor attributes them.
type Sink interface {
	OnLogEntry(Record)
}

// Aggregator is the default Sink: ring buffer, structured log emission,
// subscriber fanout, and optional JSONL persistence.
type Aggregator struct {
	mu     sync.Mutex
	ring   []Record
	next   int
	filled bool
	seq    uint64
	subs   map[chan Record]struct{}
	depth  int
	log    pslog.Logger
	file   *os.File
}

// New constructs an Aggregator with the given ring capacity.
func New(ring int, logger pslog.Logger) *Aggregator {
	if ring <= 0 {
		ring = schema.DefaultDiagnosticsRing
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Aggregator{
		ring:  make([]Record, 0, ring),
		subs:  make(map[chan Record]struct{}),
		depth: 256,
		log:   logger,
	}
}

// OnLogEntry records one report. Implements Sink.
func (a *Aggregator) OnLogEntry(rec Record) {
	if a == nil {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	a.mu.Lock()
	a.seq++
	rec.Seq = a.seq
	if len(a.ring) < cap(a.ring) {
		a.ring = append(a.ring, rec)
	} else {
		a.ring[a.next] = rec
		a.filled = true
	}
	a.next = (a.next + 1) % cap(a.ring)
	file := a.file
	a.mu.Unlock()

	a.emit(rec)
	a.publish(rec)
	if file != nil {
		appendLine(file, rec)
	}
}

func (a *Aggregator) emit(rec Record) {
	log := a.log
	if rec.Pipeline != 0 {
		log = log.With("pipeline", uint64(rec.Pipeline))
	}
	if rec.Actor != "" {
		log = log.With("actor", rec.Actor)
	}
	switch rec.Entry.Kind {
	case schema.LogPanic:
		if rec.Entry.Backtrace != "" {
			log = log.With("backtrace", rec.Entry.Backtrace)
		}
		log.Error("pipeline panic", "reason", rec.Entry.Reason)
	case schema.LogError:
		log.Error("pipeline error", "reason", rec.Entry.Reason)
	default:
		log.Warn("pipeline warning", "reason", rec.Entry.Reason)
	}
}

// Snapshot returns the ring contents in arrival order.
func (a *Aggregator) Snapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.filled {
		out := make([]Record, len(a.ring))
		copy(out, a.ring)
		return out
	}
	out := make([]Record, 0, cap(a.ring))
	out = append(out, a.ring[a.next:]...)
	out = append(out, a.ring[:a.next]...)
	return out
}

// Recent returns up to n of the newest records, oldest first.
func (a *Aggregator) Recent(n int) []Record {
	all := a.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
