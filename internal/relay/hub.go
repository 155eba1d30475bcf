package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/model/roster"
	"github.com/medichat/docboard/internal/transport"
)

// client is one live websocket connection after a successful join.
type client struct {
	id          string
	conn        *websocket.Conn
	writeMu     sync.Mutex
	role        chat.Role
	displayName string
	patientID   string
}

func (c *client) send(event string, data any) {
	frame := transport.Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Printf("[relay] marshal %s frame: %v", event, err)
			return
		}
		frame.Data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(frame); err != nil {
		log.Printf("[relay] write %s to %s failed: %v", event, c.id, err)
	}
}

// Hub tracks rooms (one per patient id) and every patient ever seen. Patients
// stay listed after they disconnect; only their online flag drops.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*client
	rooms    map[string]map[string]*client
	patients map[string]*roster.Patient
	order    []string
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		rooms:    make(map[string]map[string]*client),
		patients: make(map[string]*roster.Patient),
	}
}

// join registers a connection in its room. A patient join records the patient
// and announces it to the room's doctors.
func (h *Hub) join(c *client, req transport.JoinRequest) {
	h.mu.Lock()
	h.clients[c.id] = c
	room := h.rooms[c.patientID]
	if room == nil {
		room = make(map[string]*client)
		h.rooms[c.patientID] = room
	}
	room[c.id] = c

	var announce bool
	if c.role == chat.RolePatient {
		patient, ok := h.patients[c.patientID]
		if !ok {
			patient = &roster.Patient{ID: c.patientID, Name: c.displayName}
			h.patients[c.patientID] = patient
			h.order = append(h.order, c.patientID)
		}
		patient.Online = true
		if req.Profile != nil {
			patient.Profile = req.Profile
			if req.Profile.Name != "" {
				patient.Name = req.Profile.Name
			}
			patient.Condition = req.Profile.Condition
		}
		announce = true
	}
	h.mu.Unlock()

	if announce {
		h.broadcastRoom(c.patientID, c.id, "patientEvent", transport.PatientLifecycleEvent{
			Type:      transport.LifecycleConnected,
			PatientID: c.patientID,
			Profile:   req.Profile,
		})
	}
	h.broadcastPresence()
}

// leave drops a connection. The last patient connection leaving a room marks
// the patient offline and notifies the room.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	room := h.rooms[c.patientID]
	delete(room, c.id)

	var wentOffline bool
	if c.role == chat.RolePatient {
		stillHere := false
		for _, other := range room {
			if other.role == chat.RolePatient {
				stillHere = true
				break
			}
		}
		if !stillHere {
			if patient, ok := h.patients[c.patientID]; ok {
				patient.Online = false
				wentOffline = true
			}
		}
	}
	h.mu.Unlock()

	if wentOffline {
		h.broadcastRoom(c.patientID, c.id, "patientEvent", transport.PatientLifecycleEvent{
			Type:      transport.LifecycleDisconnected,
			PatientID: c.patientID,
		})
	}
	h.broadcastPresence()
}

// relayMessage stamps and echoes a message to the whole room, sender
// included: the echo is the sender's only confirmation.
func (h *Hub) relayMessage(c *client, out transport.OutboundMessage) {
	msg := chat.Message{
		PatientID:   c.patientID,
		Role:        c.role,
		DisplayName: c.displayName,
		Text:        out.Text,
		Timestamp:   time.Now().UnixMilli(),
		Status:      chat.StatusDelivered,
		File:        out.File,
	}
	h.broadcastRoom(c.patientID, "", "message", msg)
}

// relayTyping forwards a typing signal to the other participants in the room.
func (h *Hub) relayTyping(c *client, isTyping bool) {
	h.broadcastRoom(c.patientID, c.id, "typing", transport.TypingEvent{
		Role:        c.role,
		IsTyping:    isTyping,
		DisplayName: c.displayName,
		PatientID:   c.patientID,
	})
}

// Snapshot returns the roster in first-seen order: presence metadata only,
// profiles travel via lifecycle events.
func (h *Hub) Snapshot() []roster.Patient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]roster.Patient, 0, len(h.order))
	for _, id := range h.order {
		patient := h.patients[id]
		out = append(out, roster.Patient{
			ID:        patient.ID,
			Name:      patient.Name,
			Condition: patient.Condition,
			Online:    patient.Online,
		})
	}
	return out
}

// broadcastRoom sends one frame to every room member except the id in skip
// (empty skip reaches everyone, sender included).
func (h *Hub) broadcastRoom(patientID, skip, event string, data any) {
	h.mu.Lock()
	members := make([]*client, 0, len(h.rooms[patientID]))
	for _, member := range h.rooms[patientID] {
		if member.id != skip {
			members = append(members, member)
		}
	}
	h.mu.Unlock()

	for _, member := range members {
		member.send(event, data)
	}
}

// broadcastPresence pushes a full presence snapshot to every connection.
func (h *Hub) broadcastPresence() {
	h.mu.Lock()
	users := make([]transport.PresenceEntry, 0, len(h.clients))
	targets := make([]*client, 0, len(h.clients))
	for _, member := range h.clients {
		users = append(users, transport.PresenceEntry{
			Role:        member.role,
			DisplayName: member.displayName,
			PatientID:   member.patientID,
		})
		targets = append(targets, member)
	}
	h.mu.Unlock()

	for _, member := range targets {
		member.send("presence", users)
	}
}
