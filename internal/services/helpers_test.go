package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"cvscan/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockBroadcaster is a testify mock of Broadcaster.
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, eventType string, data interface{}) {
	m.Called(eventType, data)
}

// recordingBroadcaster collects event types.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingBroadcaster) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// triangleRecording returns cycles triangular sweeps 0 -> 1 -> 0 of
// steps rows each, closed by a final zero row. Every sweep starts with
// the only sub-threshold potential, so there are cycles+1 crossings.
func triangleRecording(cycles, steps int) domain.Table {
	var table domain.Table
	for c := 0; c < cycles; c++ {
		for i := 0; i < steps; i++ {
			var p float64
			if i <= steps/2 {
				p = 2 * float64(i) / float64(steps)
			} else {
				p = 2 * float64(steps-i) / float64(steps)
			}
			current := p * p
			if i > steps/2 {
				current = -p
			}
			table = append(table, domain.Sample{Potential: p, Current: current})
		}
	}
	return append(table, domain.Sample{})
}

type fakeSource struct {
	rates  []float64
	tables map[float64]domain.Table
}

func newFakeSource() *fakeSource {
	return &fakeSource{tables: make(map[float64]domain.Table)}
}

func (f *fakeSource) add(rate float64, table domain.Table) {
	f.rates = append(f.rates, rate)
	if table != nil {
		f.tables[rate] = table
	}
}

func (f *fakeSource) Table(_ context.Context, rate float64) (domain.Table, error) {
	t, ok := f.tables[rate]
	if !ok {
		return nil, rateError(ErrDatasetMissing, rate)
	}
	return t.Clone(), nil
}

func (f *fakeSource) ScanRates() []float64 { return f.rates }

func (f *fakeSource) Missing() []float64 {
	out := []float64{}
	for _, r := range f.rates {
		if _, ok := f.tables[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}
