package integrity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
)

type stubMonitor struct {
	mu       sync.Mutex
	starts   int
	ends     int
	startErr error
	endErr   error
	onEvent  func(model.ViolationEvent)
}

func (m *stubMonitor) StartSession(ctx context.Context, examID, userID string, onEvent func(model.ViolationEvent)) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return "", m.startErr
	}
	m.onEvent = onEvent
	return Handle("h-" + examID), nil
}

func (m *stubMonitor) EndSession(ctx context.Context, handle Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
	return m.endErr
}

func (m *stubMonitor) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.ends
}

func (m *stubMonitor) emit(ev model.ViolationEvent) {
	m.mu.Lock()
	fire := m.onEvent
	m.mu.Unlock()
	if fire != nil {
		fire(ev)
	}
}

type stubRecorder struct {
	mu     sync.Mutex
	events []model.ViolationEvent
	err    error
}

func (r *stubRecorder) RecordViolation(ctx context.Context, examID, userID string, ev model.ViolationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *stubRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestBridgeStartIsIdempotent(t *testing.T) {
	monitor := &stubMonitor{}
	b := NewBridge(monitor, nil, zerolog.Nop())

	b.Start(context.Background(), "exam-1", "user-1")
	b.Start(context.Background(), "exam-1", "user-1")

	if starts, _ := monitor.counts(); starts != 1 {
		t.Fatalf("monitor started %d times, want 1", starts)
	}
}

func TestBridgeEndIsIdempotent(t *testing.T) {
	monitor := &stubMonitor{}
	b := NewBridge(monitor, nil, zerolog.Nop())

	b.Start(context.Background(), "exam-1", "user-1")
	b.End(context.Background())
	b.End(context.Background())

	if _, ends := monitor.counts(); ends != 1 {
		t.Fatalf("monitor ended %d times, want 1", ends)
	}
}

func TestBridgeEndWithoutStartIsNoop(t *testing.T) {
	monitor := &stubMonitor{}
	b := NewBridge(monitor, nil, zerolog.Nop())

	b.End(context.Background())

	if _, ends := monitor.counts(); ends != 0 {
		t.Fatalf("monitor ended %d times, want 0", ends)
	}
}

func TestBridgeStartFailureIsSwallowed(t *testing.T) {
	monitor := &stubMonitor{startErr: errors.New("proctoring down")}
	b := NewBridge(monitor, nil, zerolog.Nop())

	// Must not panic or surface the error; the exam runs unmonitored.
	b.Start(context.Background(), "exam-1", "user-1")
	b.End(context.Background())

	if b.Count() != 0 {
		t.Fatalf("count = %d, want 0", b.Count())
	}
}

func TestBridgeCountsEvents(t *testing.T) {
	monitor := &stubMonitor{}
	recorder := &stubRecorder{}
	b := NewBridge(monitor, recorder, zerolog.Nop())

	b.Start(context.Background(), "exam-1", "user-1")
	monitor.emit(model.ViolationEvent{Type: "focus_lost", Timestamp: time.Now()})
	monitor.emit(model.ViolationEvent{Type: "fullscreen_exit", Timestamp: time.Now()})
	b.Report(model.ViolationEvent{Type: "tab_switch"})

	if b.Count() != 3 {
		t.Fatalf("count = %d, want 3", b.Count())
	}
	if b.LastType() != "tab_switch" {
		t.Fatalf("last type = %q, want tab_switch", b.LastType())
	}
	if recorder.count() != 3 {
		t.Fatalf("recorder saw %d events, want 3", recorder.count())
	}
}

func TestBridgeRecorderFailureIsSwallowed(t *testing.T) {
	monitor := &stubMonitor{}
	recorder := &stubRecorder{err: errors.New("queue full")}
	b := NewBridge(monitor, recorder, zerolog.Nop())

	b.Start(context.Background(), "exam-1", "user-1")
	monitor.emit(model.ViolationEvent{Type: "focus_lost", Timestamp: time.Now()})

	// The in-session count still advances even when persistence fails.
	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
}

func TestBridgeIgnoresEventsAfterEnd(t *testing.T) {
	monitor := &stubMonitor{}
	b := NewBridge(monitor, nil, zerolog.Nop())

	b.Start(context.Background(), "exam-1", "user-1")
	monitor.emit(model.ViolationEvent{Type: "focus_lost", Timestamp: time.Now()})
	b.End(context.Background())
	monitor.emit(model.ViolationEvent{Type: "focus_lost", Timestamp: time.Now()})

	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
}

func TestNilMonitorRunsUnmonitored(t *testing.T) {
	b := NewBridge(nil, nil, zerolog.Nop())
	b.Start(context.Background(), "exam-1", "user-1")
	b.Report(model.ViolationEvent{Type: "tab_switch"})
	b.End(context.Background())

	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
}
