package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/transport"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler upgrades websocket connections and feeds their frames to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler wires a handler to the hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWS is the GET /ws endpoint.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[relay] upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	log.Printf("[relay] connection %s opened", c.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.pingLoop(ctx, c)

	defer func() {
		if c.patientID != "" {
			h.hub.leave(c)
		}
		conn.Close()
		log.Printf("[relay] connection %s closed", c.id)
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var frame transport.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[relay] read error on %s: %v", c.id, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleFrame(c, frame)
	}
}

func (h *Handler) handleFrame(c *client, frame transport.Frame) {
	switch frame.Event {
	case "join":
		if c.patientID != "" {
			c.send("errorMessage", "already joined")
			return
		}
		var req transport.JoinRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			c.send("errorMessage", "invalid join payload")
			return
		}
		if req.PatientID == "" {
			c.send("errorMessage", "patientId is required")
			return
		}
		if req.Role != chat.RoleDoctor && req.Role != chat.RolePatient {
			c.send("errorMessage", "role must be doctor or patient")
			return
		}
		c.role = req.Role
		c.displayName = req.DisplayName
		c.patientID = req.PatientID
		h.hub.join(c, req)

	case "message":
		if c.patientID == "" {
			c.send("errorMessage", "join before sending")
			return
		}
		var out transport.OutboundMessage
		if err := json.Unmarshal(frame.Data, &out); err != nil {
			c.send("errorMessage", "invalid message payload")
			return
		}
		h.hub.relayMessage(c, out)

	case "typing":
		if c.patientID == "" {
			return
		}
		var isTyping bool
		if err := json.Unmarshal(frame.Data, &isTyping); err != nil {
			c.send("errorMessage", "invalid typing payload")
			return
		}
		h.hub.relayTyping(c, isTyping)

	case "getPatients":
		c.send("patientsList", h.hub.Snapshot())

	default:
		c.send("errorMessage", "unsupported event: "+frame.Event)
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
