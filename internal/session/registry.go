package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/integrity"
	"github.com/examly/session-engine/internal/model"
)

// Engine constructs sessions and tracks the live ones for the transport
// layer. Each session is an explicit object owning its own state; the
// engine holds no per-exam state of its own.
type Engine struct {
	loader     *Loader
	dispatcher *Dispatcher
	monitor    integrity.Monitor
	recorder   integrity.Recorder

	previewLimit int
	tick         time.Duration
	log          zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// EngineOptions carries the policy values the engine exposes as
// configuration rather than literals.
type EngineOptions struct {
	// FreePreviewLimit is the anonymous-session question cap.
	FreePreviewLimit int
	// ClockTick is the countdown step; one second in production.
	ClockTick time.Duration
}

// NewEngine creates a session engine. monitor and recorder may be nil
// to run without integrity monitoring.
func NewEngine(loader *Loader, dispatcher *Dispatcher, monitor integrity.Monitor, recorder integrity.Recorder, opts EngineOptions, log zerolog.Logger) *Engine {
	if opts.FreePreviewLimit <= 0 {
		opts.FreePreviewLimit = 5
	}
	if opts.ClockTick <= 0 {
		opts.ClockTick = time.Second
	}
	return &Engine{
		loader:       loader,
		dispatcher:   dispatcher,
		monitor:      monitor,
		recorder:     recorder,
		previewLimit: opts.FreePreviewLimit,
		tick:         opts.ClockTick,
		log:          log.With().Str("component", "session_engine").Logger(),
		sessions:     make(map[string]*Session),
	}
}

// Start loads and normalizes the exam, applies the access policy, arms
// the clock and (for authenticated users) opens the monitoring session.
// Load failures return before any state is armed: no partial session.
func (e *Engine) Start(ctx context.Context, ref string, source model.Source, userID *string) (*Session, error) {
	def, questions, err := e.loader.Load(ctx, ref, source)
	if err != nil {
		return nil, err
	}

	questions, withheld := ApplyAccess(questions, userID != nil, e.previewLimit)

	s := &Session{
		ID:         uuid.New().String(),
		def:        def,
		questions:  questions,
		withheld:   withheld,
		userID:     userID,
		ledger:     NewLedger(questions),
		bridge:     integrity.NewBridge(e.monitor, e.recorder, e.log),
		dispatcher: e.dispatcher,
		done:       make(chan struct{}),
		log: e.log.With().
			Str("exam_id", def.ID).
			Str("source", string(def.Source)).
			Logger(),
	}
	s.clock = NewClock(e.tick, s.handleTimeout)

	// Monitoring only for authenticated sessions, and only before the
	// clock makes the session live.
	if userID != nil {
		s.bridge.Start(ctx, def.ID, *userID)
	}

	s.clock.Arm(def.DurationMinutes * 60)

	e.mu.Lock()
	e.sessions[s.ID] = s
	e.mu.Unlock()

	s.log.Info().
		Str("session_id", s.ID).
		Int("questions", len(questions)).
		Int("withheld", withheld).
		Msg("Session started")
	return s, nil
}

// Get returns a live session by ID.
func (e *Engine) Get(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// Drop abandons the session if still running and removes it from the
// registry. Used when the user leaves the exam view.
func (e *Engine) Drop(ctx context.Context, id string) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if ok {
		s.Abandon(ctx)
	}
}

// Shutdown abandons every still-running session. Completed sessions
// have already closed their monitoring handles.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	live := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		live = append(live, s)
	}
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()

	for _, s := range live {
		s.Abandon(ctx)
	}
}
