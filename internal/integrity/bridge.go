package integrity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
)

// Handle identifies one monitoring session held by the external
// proctoring subsystem.
type Handle string

// Monitor is the contract with the external proctoring subsystem. The
// engine never sees its internals (camera capture, focus detection);
// it only starts and ends a session and receives the event callback.
type Monitor interface {
	StartSession(ctx context.Context, examID, userID string, onEvent func(model.ViolationEvent)) (Handle, error)
	EndSession(ctx context.Context, handle Handle) error
}

// Recorder is an optional persistence sink for violation events. The
// production wiring pushes to the Redis persistence queue.
type Recorder interface {
	RecordViolation(ctx context.Context, examID, userID string, ev model.ViolationEvent) error
}

// Bridge consumes the monitor on behalf of exactly one session.
// Monitoring is strictly best-effort and advisory: every error here is
// logged and swallowed, never surfaced into the exam.
type Bridge struct {
	monitor  Monitor
	recorder Recorder
	log      zerolog.Logger

	mu       sync.Mutex
	handle   Handle
	started  bool
	ended    bool
	count    int
	lastType string
	examID   string
	userID   string
}

// NewBridge creates a bridge. monitor and recorder may both be nil
// (anonymous sessions run unmonitored).
func NewBridge(monitor Monitor, recorder Recorder, log zerolog.Logger) *Bridge {
	return &Bridge{
		monitor:  monitor,
		recorder: recorder,
		log:      log.With().Str("component", "integrity_bridge").Logger(),
	}
}

// Start opens the monitoring session. Idempotent: a second call is a
// no-op. Failures are logged and the exam proceeds unmonitored.
func (b *Bridge) Start(ctx context.Context, examID, userID string) {
	b.mu.Lock()
	if b.started || b.ended || b.monitor == nil {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.examID = examID
	b.userID = userID
	b.mu.Unlock()

	handle, err := b.monitor.StartSession(ctx, examID, userID, b.observe)
	if err != nil {
		b.log.Warn().Err(err).
			Str("exam_id", examID).
			Msg("Monitoring start failed; continuing unmonitored")
		return
	}

	b.mu.Lock()
	b.handle = handle
	b.mu.Unlock()
}

// observe is the event callback handed to the monitor. It appends to
// the violation log and forwards to the recorder, best-effort.
func (b *Bridge) observe(ev model.ViolationEvent) {
	b.mu.Lock()
	if b.ended {
		b.mu.Unlock()
		return
	}
	b.count++
	b.lastType = ev.Type
	examID, userID := b.examID, b.userID
	b.mu.Unlock()

	if b.recorder != nil {
		if err := b.recorder.RecordViolation(context.Background(), examID, userID, ev); err != nil {
			b.log.Warn().Err(err).Str("type", ev.Type).Msg("Violation record dropped")
		}
	}
}

// Report feeds a violation observed by the client itself, such as a
// tab switch, into the same path as monitor events.
func (b *Bridge) Report(ev model.ViolationEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.observe(ev)
}

// End closes the monitoring session. Called on every terminal path,
// whether submit, timeout, or abandonment, exactly once. Further calls
// and calls without a prior Start are no-ops. Errors are logged only.
func (b *Bridge) End(ctx context.Context) {
	b.mu.Lock()
	if b.ended {
		b.mu.Unlock()
		return
	}
	b.ended = true
	started := b.started
	handle := b.handle
	b.mu.Unlock()

	if !started || b.monitor == nil || handle == "" {
		return
	}
	if err := b.monitor.EndSession(ctx, handle); err != nil {
		b.log.Warn().Err(err).Str("handle", string(handle)).Msg("Monitoring end failed")
	}
}

// Count returns the running violation count.
func (b *Bridge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// LastType returns the most recent violation's type tag, for the
// transient user-facing notice. Empty when no event has arrived.
func (b *Bridge) LastType() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastType
}
