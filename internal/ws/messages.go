// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/outcomely/timelock/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeEvent         MsgType = "event"
	MsgTypeStats         MsgType = "stats"
	MsgTypeResolutionDue MsgType = "resolution_due"
	MsgTypeError         MsgType = "error"
)

// EventMessage wraps one engine event for broadcast. Event carries the engine
// event name (market_created, stake_placed, market_resolved, ...).
type EventMessage struct {
	Type      MsgType   `json:"type"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsMessage carries the periodic aggregate snapshot pushed by the
// scheduler.
type StatsMessage struct {
	Type      MsgType       `json:"type"`
	Stats     *domain.Stats `json:"stats"`
	Timestamp time.Time     `json:"timestamp"`
}

// ResolutionDueMessage notifies clients that an open market has passed its
// unlock time and awaits an admin resolution.
type ResolutionDueMessage struct {
	Type       MsgType   `json:"type"`
	MarketID   uint64    `json:"market_id"`
	Question   string    `json:"question"`
	UnlockTime time.Time `json:"unlock_time"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
