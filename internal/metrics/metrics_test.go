package metrics

import (
	"context"
	"testing"

	"github.com/aliassadi/pcmplay/stream"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct{ stats stream.Stats }

func (f *fakeSource) Stats() stream.Stats { return f.stats }

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	src := &fakeSource{stats: stream.Stats{
		StreamID:       "abc",
		State:          stream.StateRunning,
		Cursor:         480,
		Callbacks:      10,
		FramesRendered: 1920,
		Underruns:      2,
		Drains:         1,
		DeviceErrors:   0,
	}}

	reg, err := Register(mp, src)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer reg.Unregister() //nolint:errcheck

	rm := collect(t, reader)

	sums := map[string]int64{
		"pcmplay.stream.callbacks":     10,
		"pcmplay.stream.frames":        1920,
		"pcmplay.stream.underruns":     2,
		"pcmplay.stream.drains":        1,
		"pcmplay.stream.device_errors": 0,
	}
	for name, want := range sums {
		t.Run(name, func(t *testing.T) {
			m := findMetric(rm, name)
			if m == nil {
				t.Fatalf("metric %q not found", name)
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q data type = %T, want Sum[int64]", name, m.Data)
			}
			if len(sum.DataPoints) != 1 {
				t.Fatalf("got %d data points, want 1", len(sum.DataPoints))
			}
			if got := sum.DataPoints[0].Value; got != want {
				t.Errorf("value = %d, want %d", got, want)
			}
			if !sum.IsMonotonic {
				t.Error("counter should be monotonic")
			}
		})
	}

	cursor := findMetric(rm, "pcmplay.stream.cursor")
	if cursor == nil {
		t.Fatal("cursor gauge not found")
	}
	g, ok := cursor.Data.(metricdata.Gauge[int64])
	if !ok || len(g.DataPoints) != 1 || g.DataPoints[0].Value != 480 {
		t.Errorf("cursor gauge = %+v, want 480", cursor.Data)
	}

	state := findMetric(rm, "pcmplay.stream.state")
	if state == nil {
		t.Fatal("state gauge not found")
	}
	sg := state.Data.(metricdata.Gauge[int64])
	if len(sg.DataPoints) != len(allStates) {
		t.Fatalf("state gauge has %d points, want %d", len(sg.DataPoints), len(allStates))
	}
	for _, dp := range sg.DataPoints {
		v, _ := dp.Attributes.Value("state")
		want := int64(0)
		if v.AsString() == "running" {
			want = 1
		}
		if dp.Value != want {
			t.Errorf("state{%s} = %d, want %d", v.AsString(), dp.Value, want)
		}
	}
}

func TestRegisterTracksChanges(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	src := &fakeSource{}
	if _, err := Register(mp, src); err != nil {
		t.Fatal(err)
	}

	src.stats.Underruns = 5
	rm := collect(t, reader)
	sum := findMetric(rm, "pcmplay.stream.underruns").Data.(metricdata.Sum[int64])
	if got := sum.DataPoints[0].Value; got != 5 {
		t.Errorf("underruns = %d, want 5", got)
	}
}
