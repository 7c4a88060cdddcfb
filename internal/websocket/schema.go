package websocket

import "github.com/examly/session-engine/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect    Action = "select"
	ActionFlag      Action = "flag"
	ActionUnflag    Action = "unflag"
	ActionSubmit    Action = "submit"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectRequest toggles or replaces an option on a question.
type SelectRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Option     string `json:"option"`
}

// FlagRequest marks or unmarks a question for review.
type FlagRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// ViolationRequest reports a proctoring event observed by the client.
type ViolationRequest struct {
	Action Action `json:"action"`
	Type   string `json:"type"`
}

// SubmitRequest finishes and grades the session.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSelected Event = "selected"
	EventFlagged  Event = "flagged"
	EventGraded   Event = "graded"
	EventExpired  Event = "expired"
	EventPong     Event = "pong"
)

type SelectedResponse struct {
	Event      Event    `json:"event"`
	QuestionID string   `json:"question_id"`
	Selection  []string `json:"selection"`
}

type FlaggedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Flagged    bool   `json:"flagged"`
}

type GradedResponse struct {
	Event  Event                   `json:"event"`
	Result *model.SubmissionResult `json:"result"`
}

// ExpiredResponse notifies the client that the clock ran out and the
// session was auto-submitted.
type ExpiredResponse struct {
	Event  Event                   `json:"event"`
	Result *model.SubmissionResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
}
