package store

import (
	"sync"
	"time"

	"github.com/medichat/docboard/internal/model/chat"
)

// dedupWindowMillis is the timestamp bucket for the duplicate predicate: two
// messages with equal text and role closer than this are one message. The
// transport assigns no message ids, so this heuristic is the only identity.
const dedupWindowMillis = 1000

// Result reports what Append did with a message.
type Result struct {
	Accepted bool
	// PatientAlert is set for accepted patient-role messages, exactly once
	// per message; duplicates never re-fire it.
	PatientAlert bool
}

// Store holds the per-conversation message logs and the lifetime counters
// derived from them. Logs are append-only and created lazily; Clear truncates
// a log but never removes the entry.
type Store struct {
	mu   sync.Mutex
	logs map[string][]chat.Message

	total   int
	today   int
	day     time.Time
	samples []int64

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		logs: make(map[string][]chat.Message),
		now:  time.Now,
	}
}

// Append adds a message to the named conversation's log unless the duplicate
// predicate matches an existing entry: same text, same role, timestamps within
// one second. Duplicates are absorbed silently. Insertion order is arrival
// order, not timestamp order.
func (s *Store) Append(patientID string, msg chat.Message) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	logEntries := s.logs[patientID]

	for _, existing := range logEntries {
		if existing.Text == msg.Text && existing.Role == msg.Role && absMillis(existing.Timestamp-msg.Timestamp) < dedupWindowMillis {
			return Result{}
		}
	}

	if msg.Role == chat.RoleDoctor && len(logEntries) > 0 {
		if prev := logEntries[len(logEntries)-1]; prev.Role == chat.RolePatient {
			if delta := msg.Timestamp - prev.Timestamp; delta > 0 {
				s.samples = append(s.samples, delta)
			}
		}
	}

	s.logs[patientID] = append(logEntries, msg)
	s.rollDay()
	s.total++
	s.today++

	return Result{Accepted: true, PatientAlert: msg.Role == chat.RolePatient}
}

// Ensure creates an empty log for the conversation if none exists yet.
func (s *Store) Ensure(patientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[patientID]; !ok {
		s.logs[patientID] = nil
	}
}

// Clear truncates a conversation's log. Lifetime counters are untouched.
func (s *Store) Clear(patientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[patientID] = nil
}

// Messages returns a copy of the conversation's log in insertion order.
func (s *Store) Messages(patientID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[patientID]
	copied := make([]chat.Message, len(entries))
	copy(copied, entries)
	return copied
}

// CountByRole re-derives the number of messages a role has in one log. This
// is the unread-count primitive: always recomputed, never cached.
func (s *Store) CountByRole(patientID string, role chat.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, msg := range s.logs[patientID] {
		if msg.Role == role {
			n++
		}
	}
	return n
}

// TotalMessages is the lifetime accepted-message count.
func (s *Store) TotalMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// MessagesToday is the accepted-message count since local midnight.
func (s *Store) MessagesToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay()
	return s.today
}

// AvgResponseMillis is the mean doctor response delay over recorded samples,
// or 0 when none have been recorded.
func (s *Store) AvgResponseMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return 0
	}
	var sum int64
	for _, sample := range s.samples {
		sum += sample
	}
	return sum / int64(len(s.samples))
}

// rollDay resets the daily counter when the local date changes. Callers hold mu.
func (s *Store) rollDay() {
	year, month, day := s.now().Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	if !start.Equal(s.day) {
		s.day = start
		s.today = 0
	}
}

func absMillis(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}
