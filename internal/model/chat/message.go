package chat

// Role identifies which side of the conversation authored a message.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Status is the delivery state stamped by the relay.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
)

// AttachmentKind distinguishes inline-renderable images from opaque files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment carries an optional file payload alongside a message.
type Attachment struct {
	Name    string         `json:"name"`
	Content string         `json:"content,omitempty"`
	Kind    AttachmentKind `json:"type"`
}

// Message is one chat entry. Timestamp is sender-assigned milliseconds since
// epoch and is not globally monotonic across senders. Messages are immutable
// once stored.
type Message struct {
	PatientID   string      `json:"patientId,omitempty"`
	Role        Role        `json:"role"`
	DisplayName string      `json:"displayName"`
	Text        string      `json:"text"`
	Timestamp   int64       `json:"timestamp"`
	Status      Status      `json:"status,omitempty"`
	File        *Attachment `json:"file,omitempty"`
}
