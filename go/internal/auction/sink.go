package auction

import "github.com/mcdev12/turnbid/go/internal/auction/events"

// EventSink receives lifecycle events (start, bids, turn changes, end) for
// relaying off-process. Record must not block.
type EventSink interface {
	Record(ev *events.Envelope)
}

type noopSink struct{}

func (noopSink) Record(*events.Envelope) {}

// MultiSink records every event into each of its sinks
type MultiSink []EventSink

func (m MultiSink) Record(ev *events.Envelope) {
	for _, s := range m {
		s.Record(ev)
	}
}
