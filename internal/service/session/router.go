package session

import (
	"context"
	"fmt"
	"log"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/transport"
)

// HandleEvent dispatches one inbound event to its handler. The session mutex
// is held for the full dispatch, so no two events are ever handled
// concurrently.
func (s *Session) HandleEvent(ctx context.Context, ev transport.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case transport.Connected:
		s.handleConnected(ctx)
	case transport.MessageEvent:
		s.handleMessage(ev.Message)
	case transport.TypingEvent:
		s.handleTyping(ev)
	case transport.PresenceEvent:
		s.handlePresence(ev)
	case transport.PatientsListEvent:
		s.handlePatientsList(ev)
	case transport.PatientLifecycleEvent:
		s.handleLifecycle(ctx, ev)
	case transport.ErrorMessageEvent:
		s.listener.Notice(NoticeError, ev.Text)
	case transport.ConnectErrorEvent:
		s.listener.Notice(NoticeError, "Unable to connect to server")
	default:
		log.Printf("[session] ignoring unknown event %T", ev)
	}
}

func (s *Session) handleConnected(ctx context.Context) {
	s.connected = true

	join := transport.JoinRequest{
		Role:        chat.RoleDoctor,
		PatientID:   s.cfg.TargetPatientID,
		DisplayName: s.cfg.DisplayName,
	}
	if err := s.channel.Join(ctx, join); err != nil {
		log.Printf("[session] join emit failed: %v", err)
	}
	if err := s.channel.RequestPatients(ctx); err != nil {
		log.Printf("[session] roster fetch failed: %v", err)
	}

	if s.current == "" && s.cfg.TargetPatientID != "" {
		s.current = s.cfg.TargetPatientID
		s.store.Ensure(s.current)
		s.listener.UnreadChanged(s.current, 0)
	}
}

// handleMessage runs the store append contract: conversation-id defaulting,
// duplicate suppression, counter updates and notification fan-out.
func (s *Session) handleMessage(msg chat.Message) {
	patientID := msg.PatientID
	if patientID == "" {
		patientID = s.current
	}
	if patientID == "" {
		log.Printf("[session] dropping message with no conversation: %q", msg.Text)
		return
	}
	msg.PatientID = patientID

	res := s.store.Append(patientID, msg)
	if !res.Accepted {
		log.Printf("[session] duplicate message absorbed: %q", msg.Text)
		return
	}

	if res.PatientAlert {
		s.listener.Alert()
		s.listener.Notice(NoticeInfo, fmt.Sprintf("New message from %s", msg.DisplayName))
	}

	s.listener.MessageAppended(patientID, msg, patientID == s.current)
	s.listener.UnreadChanged(patientID, s.unreadLocked(patientID))
	s.listener.StatsChanged(s.statsLocked())
}

// handleTyping applies a remote typing signal. Only an explicit patient
// start shows the indicator; everything else hides it and restores the named
// patient to online. There is deliberately no inbound decay timer: the
// indicator persists until a stop event arrives.
func (s *Session) handleTyping(ev transport.TypingEvent) {
	if ev.Role == chat.RolePatient && ev.IsTyping {
		s.roster.SetTyping(ev.PatientID, true)
		s.listener.TypingIndicator(ev.PatientID, ev.DisplayName, true)
		return
	}

	if ev.PatientID != "" {
		s.roster.SetTyping(ev.PatientID, false)
	}
	s.listener.TypingIndicator(ev.PatientID, ev.DisplayName, false)
}

// handlePresence recomputes the active-chat count from the snapshot. The
// roster is not consulted: presence reflects who is connected right now.
func (s *Session) handlePresence(ev transport.PresenceEvent) {
	active := 0
	for _, user := range ev.Users {
		if user.Role == chat.RolePatient {
			active++
		}
	}
	s.activeChats = active
	s.listener.StatsChanged(s.statsLocked())
}

func (s *Session) handlePatientsList(ev transport.PatientsListEvent) {
	added := s.roster.Reconcile(ev.Patients)
	for _, id := range added {
		s.store.Ensure(id)
	}
	s.listener.RosterChanged(s.roster.All())
	s.listener.StatsChanged(s.statsLocked())
}

func (s *Session) handleLifecycle(ctx context.Context, ev transport.PatientLifecycleEvent) {
	switch ev.Type {
	case transport.LifecycleConnected:
		name := ev.PatientID
		if ev.Profile != nil && ev.Profile.Name != "" {
			name = ev.Profile.Name
		}
		s.listener.Alert()
		s.listener.Notice(NoticeSuccess, fmt.Sprintf("New patient %s connected", name))

		if s.roster.Connected(ev.PatientID, ev.Profile) {
			s.store.Ensure(ev.PatientID)
			if err := s.channel.RequestPatients(ctx); err != nil {
				log.Printf("[session] roster refetch failed: %v", err)
			}
			s.listener.RosterChanged(s.roster.All())
		}
	case transport.LifecycleDisconnected:
		s.listener.Notice(NoticeWarning, "Patient disconnected")
		s.roster.Disconnected(ev.PatientID)
		s.listener.RosterChanged(s.roster.All())
	default:
		log.Printf("[session] ignoring patient event type %q", ev.Type)
	}
}
