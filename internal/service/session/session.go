package session

import (
	"context"
	"sync"
	"time"

	"github.com/medichat/docboard/internal/model/chat"
	rostermodel "github.com/medichat/docboard/internal/model/roster"
	"github.com/medichat/docboard/internal/service/roster"
	"github.com/medichat/docboard/internal/service/store"
	"github.com/medichat/docboard/internal/service/typing"
	"github.com/medichat/docboard/internal/transport"
)

// NoticeLevel classifies advisory notices surfaced to the user.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Stats is the derived dashboard summary. Everything here is recomputable
// from the message logs, roster and latest presence snapshot.
type Stats struct {
	TotalMessages     int
	MessagesToday     int
	ActiveChats       int
	TrackedPatients   int
	AvgResponseMillis int64
}

// Listener receives presentation callbacks. Callbacks run on the goroutine
// that delivered the triggering event or call and must not call back into the
// Session.
type Listener interface {
	MessageAppended(patientID string, msg chat.Message, current bool)
	ChatCleared(patientID string)
	RosterChanged(patients []rostermodel.Patient)
	TypingIndicator(patientID, displayName string, visible bool)
	UnreadChanged(patientID string, unread int)
	StatsChanged(stats Stats)
	Notice(level NoticeLevel, text string)
	Alert()
}

// NopListener implements Listener with no-ops, suitable for embedding.
type NopListener struct{}

func (NopListener) MessageAppended(string, chat.Message, bool) {}
func (NopListener) ChatCleared(string)                        {}
func (NopListener) RosterChanged([]rostermodel.Patient)       {}
func (NopListener) TypingIndicator(string, string, bool)      {}
func (NopListener) UnreadChanged(string, int)                 {}
func (NopListener) StatsChanged(Stats)                        {}
func (NopListener) Notice(NoticeLevel, string)                {}
func (NopListener) Alert()                                    {}

// DefaultSendGuard is how long the in-flight guard stays set after a send.
// It is an anti-double-submit window, not an acknowledgment.
const DefaultSendGuard = 500 * time.Millisecond

// Config carries the session's identity and timing knobs.
type Config struct {
	// DisplayName announces the doctor to the relay and tags outgoing
	// attachments.
	DisplayName string
	// TargetPatientID is joined on connect and becomes the current
	// conversation when none is open yet.
	TargetPatientID string
	// SendGuard overrides DefaultSendGuard; zero keeps the default.
	SendGuard time.Duration
	// TypingIdle overrides typing.DefaultIdle; zero keeps the default.
	TypingIdle time.Duration
}

// Session owns all client-side conversation state: the message logs, the
// patient roster, the current conversation, the typing coordinator and the
// send guard. Every mutation passes through its mutex, so event handling is
// one-at-a-time even though events, timers and user calls arrive on
// different goroutines.
type Session struct {
	mu       sync.Mutex
	channel  transport.Channel
	listener Listener
	cfg      Config

	store  *store.Store
	roster *roster.Roster
	typing *typing.Coordinator

	current     string
	connected   bool
	sending     bool
	activeChats int
}

// New assembles a session over the given channel. A nil listener is replaced
// with NopListener.
func New(channel transport.Channel, listener Listener, cfg Config) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	if cfg.SendGuard <= 0 {
		cfg.SendGuard = DefaultSendGuard
	}

	s := &Session{
		channel:  channel,
		listener: listener,
		cfg:      cfg,
		store:    store.New(),
		roster:   roster.New(),
	}
	s.typing = typing.New(cfg.TypingIdle, func(isTyping bool) {
		_ = channel.SendTyping(context.Background(), isTyping)
	})
	return s
}

// Run consumes the channel's event stream until it closes or ctx is done,
// dispatching each event synchronously.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.channel.Events():
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// Current is the conversation presently in focus, or empty.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Open switches the current conversation, provisioning its log if the id has
// never been seen. Opening a conversation marks it read.
func (s *Session) Open(patientID string) {
	if patientID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = patientID
	s.store.Ensure(patientID)
	s.listener.UnreadChanged(patientID, 0)
}

// ClearChat truncates the current conversation's log. Lifetime counters are
// unaffected.
func (s *Session) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return
	}
	s.store.Clear(s.current)
	s.listener.ChatCleared(s.current)
	s.listener.Notice(NoticeInfo, "Chat cleared")
}

// Keystroke records local input activity for the typing debounce. Ignored
// when disconnected or no conversation is open.
func (s *Session) Keystroke() {
	s.mu.Lock()
	ready := s.connected && s.current != ""
	s.mu.Unlock()

	if ready {
		s.typing.Keystroke()
	}
}

// UnreadCount re-derives the unread badge for one conversation: zero while it
// is current, otherwise the number of patient messages in its log.
func (s *Session) UnreadCount(patientID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(patientID)
}

func (s *Session) unreadLocked(patientID string) int {
	if patientID == s.current {
		return 0
	}
	return s.store.CountByRole(patientID, chat.RolePatient)
}

// Messages returns a copy of one conversation's log.
func (s *Session) Messages(patientID string) []chat.Message {
	return s.store.Messages(patientID)
}

// Patients returns the roster in first-seen order.
func (s *Session) Patients() []rostermodel.Patient {
	return s.roster.All()
}

// Stats recomputes the dashboard summary.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Session) statsLocked() Stats {
	return Stats{
		TotalMessages:     s.store.TotalMessages(),
		MessagesToday:     s.store.MessagesToday(),
		ActiveChats:       s.activeChats,
		TrackedPatients:   s.roster.Len(),
		AvgResponseMillis: s.store.AvgResponseMillis(),
	}
}
