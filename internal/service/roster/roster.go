package roster

import (
	"sync"

	model "github.com/medichat/docboard/internal/model/roster"
)

// Roster tracks every patient seen this session. Records are inserted on
// first mention and never removed; remote snapshots are presence refreshes,
// not overwrites, so locally enriched fields (the profile in particular)
// survive reconciliation.
type Roster struct {
	mu       sync.Mutex
	patients map[string]*model.Patient
	order    []string
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{patients: make(map[string]*model.Patient)}
}

// Reconcile merges a remote snapshot. Unknown entries are inserted; known
// entries are left entirely untouched. Entries missing from the snapshot are
// not pruned. Returns the ids of newly inserted patients so the caller can
// provision their conversation logs.
func (r *Roster) Reconcile(snapshot []model.Patient) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	for _, entry := range snapshot {
		if entry.ID == "" {
			continue
		}
		if _, ok := r.patients[entry.ID]; ok {
			continue
		}
		patient := entry
		r.patients[entry.ID] = &patient
		r.order = append(r.order, entry.ID)
		added = append(added, entry.ID)
	}
	return added
}

// Connected handles a patient lifecycle connect. An unknown id creates a full
// record from the supplied profile and reports true so the caller can refetch
// the roster; a repeat connect is a no-op beyond the caller's notification.
func (r *Roster) Connected(id string, profile *model.Profile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; ok {
		// Repeat connect: no state change, the caller still gets to notify.
		return false
	}

	patient := &model.Patient{ID: id, Online: true, Profile: profile}
	if profile != nil {
		patient.Name = profile.Name
		patient.Condition = profile.Condition
	}
	r.patients[id] = patient
	r.order = append(r.order, id)
	return true
}

// Disconnected marks a patient offline. Log and profile are untouched.
func (r *Roster) Disconnected(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if patient, ok := r.patients[id]; ok {
		patient.Online = false
		patient.Typing = false
	}
}

// SetTyping flips a patient's typing flag; a typing patient is necessarily
// online.
func (r *Roster) SetTyping(id string, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if patient, ok := r.patients[id]; ok {
		patient.Typing = typing
		patient.Online = true
	}
}

// Get returns a copy of one patient record.
func (r *Roster) Get(id string) (model.Patient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	patient, ok := r.patients[id]
	if !ok {
		return model.Patient{}, false
	}
	return *patient, true
}

// All returns copies of every record in first-seen order.
func (r *Roster) All() []model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Patient, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.patients[id])
	}
	return out
}

// Len is the number of patients seen this session.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patients)
}
