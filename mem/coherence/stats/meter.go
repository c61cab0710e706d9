package stats

import (
	"context"

	"github.com/sarchlab/mesil1/mem/coherence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterObserver reports the statistics as OpenTelemetry counters. Every
// counter carries the name of the controller it observes.
type MeterObserver struct {
	attrs []attribute.KeyValue

	stateEvents   metric.Int64Counter
	sent          metric.Int64Counter
	evictions     metric.Int64Counter
	stallsForLock metric.Int64Counter
	prefetch      metric.Int64Counter
}

// NewMeterObserver creates the counters on meter.
func NewMeterObserver(
	meter metric.Meter,
	controller string,
) (*MeterObserver, error) {
	o := &MeterObserver{
		attrs: []attribute.KeyValue{attribute.String("controller", controller)},
	}

	counters := []struct {
		field *metric.Int64Counter
		name  string
		desc  string
	}{
		{&o.stateEvents, "coherence.state_events",
			"Messages handled, by command and line state"},
		{&o.sent, "coherence.sent", "Messages sent, by command and direction"},
		{&o.evictions, "coherence.evictions",
			"Lines replaced, by state"},
		{&o.stallsForLock, "coherence.stalls_for_lock",
			"Operations blocked by a locked line"},
		{&o.prefetch, "coherence.prefetch", "Prefetch outcomes"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit("{event}"))
		if err != nil {
			return nil, err
		}

		*c.field = counter
	}

	return o, nil
}

func (o *MeterObserver) add(
	counter metric.Int64Counter,
	attrs ...attribute.KeyValue,
) {
	all := append(append([]attribute.KeyValue(nil), o.attrs...), attrs...)
	counter.Add(context.Background(), 1, metric.WithAttributes(all...))
}

// RecordStateEvent counts a message handled while its line was in state.
func (o *MeterObserver) RecordStateEvent(
	cmd coherence.Command,
	state coherence.State,
) {
	o.add(o.stateEvents,
		attribute.String("cmd", cmd.String()),
		attribute.String("state", state.String()))
}

// RecordEventSent counts a message sent in the given direction.
func (o *MeterObserver) RecordEventSent(
	cmd coherence.Command,
	dir coherence.Direction,
) {
	o.add(o.sent,
		attribute.String("cmd", cmd.String()),
		attribute.String("dir", dir.String()))
}

// RecordEviction counts a replacement of a line in the given state.
func (o *MeterObserver) RecordEviction(state coherence.State) {
	o.add(o.evictions, attribute.String("state", state.String()))
}

// RecordStallForLock counts an operation blocked by a locked line.
func (o *MeterObserver) RecordStallForLock() {
	o.add(o.stallsForLock)
}

// RecordPrefetch counts a prefetch outcome.
func (o *MeterObserver) RecordPrefetch(ev coherence.PrefetchEvent) {
	o.add(o.prefetch, attribute.String("event", ev.String()))
}
