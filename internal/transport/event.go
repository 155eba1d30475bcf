package transport

import (
	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/model/roster"
)

// Event is one inbound occurrence on the channel. The concrete types below
// form a closed set; the session dispatches on them exhaustively.
type Event interface {
	isEvent()
}

// Connected fires once per successful connection establishment.
type Connected struct{}

// MessageEvent delivers a chat message. PatientID on the payload may be empty
// when only one conversation is active; the receiver substitutes its current
// conversation.
type MessageEvent struct {
	Message chat.Message
}

// TypingEvent delivers a remote typing signal.
type TypingEvent struct {
	Role        chat.Role `json:"role"`
	IsTyping    bool      `json:"isTyping"`
	DisplayName string    `json:"displayName"`
	PatientID   string    `json:"patientId"`
}

// PresenceEntry is one participant in a presence snapshot.
type PresenceEntry struct {
	Role        chat.Role `json:"role"`
	DisplayName string    `json:"displayName"`
	PatientID   string    `json:"patientId,omitempty"`
}

// PresenceEvent is a full snapshot of connected participants, not a delta.
type PresenceEvent struct {
	Users []PresenceEntry
}

// PatientsListEvent is a full roster snapshot, not a delta.
type PatientsListEvent struct {
	Patients []roster.Patient
}

// Lifecycle types for PatientLifecycleEvent.
const (
	LifecycleConnected    = "connected"
	LifecycleDisconnected = "disconnected"
)

// PatientLifecycleEvent signals a single patient connecting or disconnecting.
// Profile is only populated on connect.
type PatientLifecycleEvent struct {
	Type      string          `json:"type"`
	PatientID string          `json:"patientId"`
	Profile   *roster.Profile `json:"profile,omitempty"`
}

// ErrorMessageEvent is a remote-reported, non-fatal error string.
type ErrorMessageEvent struct {
	Text string
}

// ConnectErrorEvent signals that the connection could not be established or
// was lost. Non-fatal to the session; no reconnect is attempted here.
type ConnectErrorEvent struct {
	Err error
}

func (Connected) isEvent()             {}
func (MessageEvent) isEvent()          {}
func (TypingEvent) isEvent()           {}
func (PresenceEvent) isEvent()         {}
func (PatientsListEvent) isEvent()     {}
func (PatientLifecycleEvent) isEvent() {}
func (ErrorMessageEvent) isEvent()     {}
func (ConnectErrorEvent) isEvent()     {}
