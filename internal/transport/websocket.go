package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/model/roster"
)

// Frame is the wire envelope: one named event plus its JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const writeTimeout = 10 * time.Second

// WebSocketClient implements Channel over a single gorilla/websocket
// connection. Reads happen on one goroutine; writes are serialized with a
// mutex so emits may be called from any goroutine.
type WebSocketClient struct {
	conn      *websocket.Conn
	events    chan Event
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the relay websocket endpoint and starts the read loop. A
// Connected event is the first event delivered on success.
func Dial(ctx context.Context, url string) (*WebSocketClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &WebSocketClient{
		conn:   conn,
		events: make(chan Event, 32),
	}
	c.events <- Connected{}
	go c.readLoop()
	return c, nil
}

// Events returns the inbound event stream. It is closed when the connection
// is lost or Close is called.
func (c *WebSocketClient) Events() <-chan Event {
	return c.events
}

// Join announces the local participant.
func (c *WebSocketClient) Join(_ context.Context, req JoinRequest) error {
	return c.writeFrame("join", req)
}

// SendMessage emits one user-initiated message.
func (c *WebSocketClient) SendMessage(_ context.Context, msg OutboundMessage) error {
	return c.writeFrame("message", msg)
}

// SendTyping emits the debounced typing signal.
func (c *WebSocketClient) SendTyping(_ context.Context, isTyping bool) error {
	return c.writeFrame("typing", isTyping)
}

// RequestPatients asks the relay for a fresh roster snapshot.
func (c *WebSocketClient) RequestPatients(_ context.Context) error {
	return c.writeFrame("getPatients", nil)
}

// Close tears down the connection. The read loop closes the event stream.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

func (c *WebSocketClient) writeFrame(event string, data any) error {
	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s frame: %w", event, err)
		}
		frame.Data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", event, err)
	}
	return nil
}

func (c *WebSocketClient) readLoop() {
	defer c.closeOnce.Do(func() { close(c.events) })

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
				c.events <- ConnectErrorEvent{Err: err}
			}
			return
		}

		ev, err := DecodeFrame(frame)
		if err != nil {
			log.Printf("[websocket] skipping malformed %q frame: %v", frame.Event, err)
			continue
		}
		c.events <- ev
	}
}

// DecodeFrame maps a wire frame onto its typed event.
func DecodeFrame(frame Frame) (Event, error) {
	switch frame.Event {
	case "message":
		var msg chat.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			return nil, err
		}
		return MessageEvent{Message: msg}, nil
	case "typing":
		var ev TypingEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "presence":
		var users []PresenceEntry
		if err := json.Unmarshal(frame.Data, &users); err != nil {
			return nil, err
		}
		return PresenceEvent{Users: users}, nil
	case "patientsList":
		var patients []roster.Patient
		if err := json.Unmarshal(frame.Data, &patients); err != nil {
			return nil, err
		}
		return PatientsListEvent{Patients: patients}, nil
	case "patientEvent":
		var ev PatientLifecycleEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "errorMessage":
		var text string
		if err := json.Unmarshal(frame.Data, &text); err != nil {
			return nil, err
		}
		return ErrorMessageEvent{Text: text}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", frame.Event)
	}
}
