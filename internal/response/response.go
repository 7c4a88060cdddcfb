package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Metadata carries request tracing info on every response.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Body is the standard response envelope.
type Body struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	ErrCode  ErrCode     `json:"err_code,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Fields   interface{} `json:"fields,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

func metadata(c *gin.Context) Metadata {
	return Metadata{
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Success writes a successful JSON response.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{
		Success:  true,
		Data:     data,
		Metadata: metadata(c),
	})
}

// Fail writes an error JSON response with a typed error code.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, Body{
		Success:  false,
		Message:  GetMessage(code),
		ErrCode:  code,
		Metadata: metadata(c),
	})
}

// FailWithFields writes a validation error response with per-field details.
func FailWithFields(c *gin.Context, code ErrCode, fields interface{}) {
	c.JSON(http.StatusUnprocessableEntity, Body{
		Success:  false,
		Message:  GetMessage(code),
		ErrCode:  code,
		Fields:   fields,
		Metadata: metadata(c),
	})
}

// AbortFail writes an error response and aborts the handler chain.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, Body{
		Success:  false,
		Message:  GetMessage(code),
		ErrCode:  code,
		Metadata: metadata(c),
	})
}
