package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/starlance/firecontrol/internal/dispatcher"

// instruments counts what happens to buffered events per command.
type instruments struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

func newInstruments(m metric.Meter, queues func() map[string]int) (instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	var (
		in  instruments
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.processed, "dispatcher.events.processed", "Buffered events handed to their handler"},
		{&in.dropped, "dispatcher.events.dropped", "Events rejected by a full queue"},
		{&in.failed, "dispatcher.events.failed", "Buffered events whose handler returned an error"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return in, fmt.Errorf("creating %s: %w", c.name, err)
		}
	}

	depth, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a handler queue"))
	if err != nil {
		return in, fmt.Errorf("creating queue gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range queues() {
			o.ObserveInt64(depth, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, depth)
	if err != nil {
		return in, fmt.Errorf("registering queue gauge: %w", err)
	}
	return in, nil
}

func (in instruments) handled(command string, err error) {
	attrs := metric.WithAttributes(attribute.String("command", command))
	if err != nil {
		in.failed.Add(context.Background(), 1, attrs)
	}
	in.processed.Add(context.Background(), 1, attrs)
}

func (in instruments) drop(command string) {
	in.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
