package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/transport"
)

// Send emits one message to the current conversation. The call is a silent
// no-op while a previous send is in flight, when the trimmed text is empty,
// or when there is no connection or open conversation. No local append
// happens here: the relay's echo lands through the normal inbound path, where
// deduplication guards against any double delivery.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.sending || text == "" || !s.connected || s.current == "" {
		s.mu.Unlock()
		return nil
	}
	s.sending = true
	s.armSendGuard()
	s.mu.Unlock()

	s.typing.Stop()

	if err := s.channel.SendMessage(ctx, transport.OutboundMessage{Text: text}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// SendFile runs the same pipeline for an attachment, but appends a local echo
// immediately instead of waiting for the relay's. The store's duplicate
// predicate absorbs the echo when it arrives.
func (s *Session) SendFile(ctx context.Context, name, content string, kind chat.AttachmentKind) error {
	if name == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending || !s.connected || s.current == "" {
		s.mu.Unlock()
		return nil
	}
	s.sending = true
	s.armSendGuard()

	label := "File"
	if kind == chat.AttachmentImage {
		label = "Image"
	}
	msg := chat.Message{
		PatientID:   s.current,
		Role:        chat.RoleDoctor,
		DisplayName: s.cfg.DisplayName,
		Text:        fmt.Sprintf("\U0001F4CE %s: %s", label, name),
		Timestamp:   time.Now().UnixMilli(),
		Status:      chat.StatusSent,
		File:        &chat.Attachment{Name: name, Content: content, Kind: kind},
	}
	s.mu.Unlock()

	s.typing.Stop()

	if err := s.channel.SendMessage(ctx, transport.OutboundMessage{Text: msg.Text, File: msg.File}); err != nil {
		return fmt.Errorf("send file: %w", err)
	}

	// Local optimistic echo through the normal append path.
	s.mu.Lock()
	s.handleMessage(msg)
	s.mu.Unlock()
	return nil
}

// armSendGuard schedules the unconditional guard release. The window is a
// heuristic: a slow round trip can still let a second send through after it
// closes. Callers hold mu.
func (s *Session) armSendGuard() {
	time.AfterFunc(s.cfg.SendGuard, func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	})
}
