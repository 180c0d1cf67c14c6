package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics exposes process gauges that are sampled at collection
// time rather than recorded on events.
type RuntimeMetrics struct {
	registration metric.Registration
	startTime    time.Time
}

// RegisterRuntimeMetrics registers goroutine, heap, uptime and stored
// dataset gauges on meter. datasets may be nil.
func RegisterRuntimeMetrics(meter metric.Meter, datasets func() int) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge("cv_runtime_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, err
	}
	heap, err := meter.Int64ObservableGauge("cv_runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge("cv_process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	stored, err := meter.Int64ObservableGauge("cv_datasets_loaded",
		metric.WithDescription("Recordings currently held by the dataset store"))
	if err != nil {
		return nil, err
	}

	rm := &RuntimeMetrics{startTime: time.Now()}
	rm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(mem.HeapAlloc))
		o.ObserveFloat64(uptime, time.Since(rm.startTime).Seconds())
		if datasets != nil {
			o.ObserveInt64(stored, int64(datasets()))
		}
		return nil
	}, goroutines, heap, uptime, stored)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// Uptime returns the time since the gauges were registered.
func (m *RuntimeMetrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}

// Close stops sampling.
func (m *RuntimeMetrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
