package model

import "time"

// ViolationEvent is one integrity event pushed by the external
// proctoring subsystem. The engine keeps a running count and the most
// recent type for user feedback; it never interprets the semantics.
type ViolationEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
