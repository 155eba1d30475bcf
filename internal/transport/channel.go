package transport

import (
	"context"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/model/roster"
)

// JoinRequest announces the local participant to the relay. Patients attach
// their intake profile; doctors leave it nil.
type JoinRequest struct {
	Role        chat.Role       `json:"role"`
	PatientID   string          `json:"patientId"`
	DisplayName string          `json:"displayName"`
	Profile     *roster.Profile `json:"profile,omitempty"`
}

// OutboundMessage is one user-initiated send. The relay stamps role, display
// name, timestamp and delivery status before echoing it back.
type OutboundMessage struct {
	Text string           `json:"text"`
	File *chat.Attachment `json:"file,omitempty"`
}

// Channel is the bidirectional event channel to the relay. Emits are
// fire-and-forget: a nil error means the frame was handed to the transport,
// not that it was delivered. The Events stream is closed when the underlying
// connection goes away.
type Channel interface {
	Events() <-chan Event
	Join(ctx context.Context, req JoinRequest) error
	SendMessage(ctx context.Context, msg OutboundMessage) error
	SendTyping(ctx context.Context, isTyping bool) error
	RequestPatients(ctx context.Context) error
	Close() error
}
