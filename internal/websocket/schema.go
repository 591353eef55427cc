package websocket

import (
	"github.com/stemsi/exampro-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionProctor Action = "proctor"
	ActionSubmit  Action = "submit"
	ActionPing    Action = "ping"
)

// Request is a client message. Which fields are read depends on Action:
// answer and submit use Answers, proctor uses EventType and Detail.
type Request struct {
	Action    Action        `json:"action"`
	Answers   model.Answers `json:"answers,omitempty"`
	EventType string        `json:"eventType,omitempty"`
	Detail    *string       `json:"detail,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventState     Event = "state"
	EventSaved     Event = "saved"
	EventProctored Event = "proctored"
	// EventEnforced tells the client the attempt was force-submitted and it
	// must leave exam mode.
	EventEnforced  Event = "enforced"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// Message is a server message.
type Message struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody mirrors the HTTP envelope's error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
