// Package metrics exports the playback engine diagnostics through
// OpenTelemetry. Counters are observed from Engine.Stats snapshots on
// collection, so the render path never touches an instrument.
//
// A Prometheus exporter bridge is installed by [InitProvider] and served by
// [Serve] on /metrics. Tests should use [Register] with a custom
// [metric.MeterProvider] backed by a manual reader.
package metrics

import (
	"context"

	"github.com/aliassadi/pcmplay/stream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pcmplay metrics.
const meterName = "github.com/aliassadi/pcmplay"

// StatsSource is implemented by stream.Controller and stream.Engine.
type StatsSource interface {
	Stats() stream.Stats
}

// Register creates the observable instruments and a callback that reads
// one Stats snapshot per collection. Unregister the returned registration
// to stop observing src.
func Register(mp metric.MeterProvider, src StatsSource) (metric.Registration, error) {
	m := mp.Meter(meterName)

	callbacks, err := m.Int64ObservableCounter("pcmplay.stream.callbacks",
		metric.WithDescription("Render callbacks that produced audio."),
	)
	if err != nil {
		return nil, err
	}
	frames, err := m.Int64ObservableCounter("pcmplay.stream.frames",
		metric.WithDescription("Frames copied from the sample buffer."),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}
	underruns, err := m.Int64ObservableCounter("pcmplay.stream.underruns",
		metric.WithDescription("Periods rendered too late or reported as underflow by the device."),
	)
	if err != nil {
		return nil, err
	}
	drains, err := m.Int64ObservableCounter("pcmplay.stream.drains",
		metric.WithDescription("Times playback reached the end of the buffer under the drain policy."),
	)
	if err != nil {
		return nil, err
	}
	deviceErrors, err := m.Int64ObservableCounter("pcmplay.stream.device_errors",
		metric.WithDescription("Device failures reported by the backend."),
	)
	if err != nil {
		return nil, err
	}
	cursor, err := m.Int64ObservableGauge("pcmplay.stream.cursor",
		metric.WithDescription("Playback position in the sample buffer."),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}
	state, err := m.Int64ObservableGauge("pcmplay.stream.state",
		metric.WithDescription("Engine lifecycle state, 1 for the current state."),
	)
	if err != nil {
		return nil, err
	}

	return m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		id := attribute.String("stream_id", s.StreamID)

		o.ObserveInt64(callbacks, int64(s.Callbacks), metric.WithAttributes(id))
		o.ObserveInt64(frames, int64(s.FramesRendered), metric.WithAttributes(id))
		o.ObserveInt64(underruns, int64(s.Underruns), metric.WithAttributes(id))
		o.ObserveInt64(drains, int64(s.Drains), metric.WithAttributes(id))
		o.ObserveInt64(deviceErrors, int64(s.DeviceErrors), metric.WithAttributes(id))
		o.ObserveInt64(cursor, int64(s.Cursor), metric.WithAttributes(id))

		for _, st := range allStates {
			var v int64
			if st == s.State {
				v = 1
			}
			o.ObserveInt64(state, v, metric.WithAttributes(attribute.String("state", st.String())))
		}
		return nil
	}, callbacks, frames, underruns, drains, deviceErrors, cursor, state)
}

var allStates = []stream.State{
	stream.StateUninitialized,
	stream.StateIdle,
	stream.StateStarting,
	stream.StateRunning,
	stream.StateStopping,
	stream.StateError,
}
