package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/model"
	"github.com/examly/session-engine/internal/session"
	ws "github.com/examly/session-engine/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowlist permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running session over WebSocket: answer picks,
// review flags, client-observed violations and the final grade.
type WSHandler struct {
	engine   *session.Engine
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(engine *session.Engine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		engine:   engine,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for real-time answer capture. When the clock
// runs out server-side the client receives the expired event with the
// auto-submitted result.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sess, ok := h.engine.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sess.ID).Logger()
	wsLog.Info().Msg("Client connected")

	// Push the expired event as soon as the server-side timeout
	// finalizes the session; manual submits answer inline.
	closed := make(chan struct{})
	go func() {
		select {
		case <-sess.Done():
			h.pushExpired(conn, sess)
		case <-closed:
		}
	}()
	defer close(closed)

	for {
		var envelope ws.RequestEnvelope
		payload, err := conn.ReadEnvelope(&envelope)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch envelope.Action {
		case ws.ActionSelect:
			h.handleSelect(conn, sess, payload)
		case ws.ActionFlag:
			h.handleFlag(conn, sess, payload, true)
		case ws.ActionUnflag:
			h.handleFlag(conn, sess, payload, false)
		case ws.ActionViolation:
			h.handleViolation(conn, sess, payload)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sess)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong, Remaining: sess.Remaining()})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleSelect(conn *ws.Conn, sess *session.Session, payload []byte) {
	var req ws.SelectRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.QuestionID == "" || req.Option == "" {
		conn.WriteError("question_id and option are required")
		return
	}

	selection, err := sess.Select(req.QuestionID, req.Option)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	conn.WriteTyped(ws.SelectedResponse{
		Event:      ws.EventSelected,
		QuestionID: req.QuestionID,
		Selection:  selection,
	})
}

func (h *WSHandler) handleFlag(conn *ws.Conn, sess *session.Session, payload []byte, flagged bool) {
	var req ws.FlagRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.QuestionID == "" {
		conn.WriteError("question_id is required")
		return
	}

	if flagged {
		if err := sess.Flag(req.QuestionID); err != nil {
			conn.WriteError(err.Error())
			return
		}
	} else {
		sess.Unflag(req.QuestionID)
	}

	conn.WriteTyped(ws.FlaggedResponse{
		Event:      ws.EventFlagged,
		QuestionID: req.QuestionID,
		Flagged:    flagged,
	})
}

func (h *WSHandler) handleViolation(conn *ws.Conn, sess *session.Session, payload []byte) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Type == "" {
		conn.WriteError("type is required")
		return
	}

	sess.ReportViolation(model.ViolationEvent{Type: req.Type, Timestamp: time.Now()})
}

func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session) {
	result := sess.Submit(context.Background())
	if result == nil {
		conn.WriteError("session was abandoned")
		return
	}

	wsLog.Info().
		Int("score", result.ScorePercent).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalQuestions).
		Msg("Session submitted over stream")

	conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Result: result})
}

// pushExpired delivers the auto-submitted result on the timeout path.
// Manual submissions already received their graded event inline.
func (h *WSHandler) pushExpired(conn *ws.Conn, sess *session.Session) {
	state := sess.State()
	if state.ClockState != session.ClockExpired || state.Result == nil {
		return
	}
	conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired, Result: state.Result})
}
