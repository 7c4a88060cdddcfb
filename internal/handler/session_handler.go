package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/middleware"
	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/response"
	"github.com/examly/session-engine/internal/session"
	"github.com/examly/session-engine/internal/validator"
)

// SessionHandler exposes the exam session lifecycle over REST.
type SessionHandler struct {
	engine *session.Engine
	log    zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(engine *session.Engine, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		engine: engine,
		log:    log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	ExamRef string `json:"exam_ref" binding:"required"`
	Source  string `json:"source" binding:"required,oneof=official community"`
}

// SelectAnswerRequest is the body of POST /sessions/:id/answers.
type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Option     string `json:"option" binding:"required,len=1"`
}

// FlagRequest is the body of POST /sessions/:id/flags.
type FlagRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
}

// Start godoc
// POST /api/v1/sessions
// Loads the exam, applies the access policy, arms the clock and returns
// the initial session state plus the sanitized paper.
func (h *SessionHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, response.ErrValidation, fields)
		return
	}

	sess, err := h.engine.Start(c.Request.Context(), req.ExamRef, model.Source(req.Source), middleware.UserID(c))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamUnavailable)
		case errors.Is(err, session.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		default:
			h.log.Error().Err(err).Str("exam_ref", req.ExamRef).Msg("Session start failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"state": sess.State(),
		"paper": sess.Paper(),
	})
}

// State godoc
// GET /api/v1/sessions/:session_id
// Returns the recovery snapshot for a running or finished session.
func (h *SessionHandler) State(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// Paper godoc
// GET /api/v1/sessions/:session_id/paper
// Returns the sanitized question views. Answer keys never leave the server.
func (h *SessionHandler) Paper(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"paper":              sess.Paper(),
		"withheld_questions": sess.Withheld(),
	})
}

// SelectAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Records one option pick and echoes the stored selection.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	var req SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, response.ErrValidation, fields)
		return
	}

	selection, err := sess.Select(req.QuestionID, req.Option)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownQuestion)
		case errors.Is(err, session.ErrUnknownOption):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownOption)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": req.QuestionID,
		"selection":   selection,
	})
}

// Flag godoc
// POST /api/v1/sessions/:session_id/flags
func (h *SessionHandler) Flag(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	var req FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, response.ErrValidation, fields)
		return
	}

	if err := sess.Flag(req.QuestionID); err != nil {
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownQuestion)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID, "flagged": true})
}

// Unflag godoc
// DELETE /api/v1/sessions/:session_id/flags/:question_id
func (h *SessionHandler) Unflag(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	sess.Unflag(c.Param("question_id"))
	response.Success(c, http.StatusOK, gin.H{"question_id": c.Param("question_id"), "flagged": false})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Finishes and grades the session. Safe to call concurrently with the
// clock timeout: both observers receive the same result.
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	result := sess.Submit(c.Request.Context())
	if result == nil {
		// Abandoned sessions never produce a result.
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Result godoc
// GET /api/v1/sessions/:session_id/result
func (h *SessionHandler) Result(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	result := sess.Result()
	if result == nil {
		response.Fail(c, http.StatusConflict, response.ErrNoResult)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Abandon godoc
// DELETE /api/v1/sessions/:session_id
// Ends the session without scoring or persisting anything.
func (h *SessionHandler) Abandon(c *gin.Context) {
	id := c.Param("session_id")
	if _, ok := h.engine.Get(id); !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	h.engine.Drop(c.Request.Context(), id)
	response.Success(c, http.StatusOK, gin.H{"session_id": id, "abandoned": true})
}
