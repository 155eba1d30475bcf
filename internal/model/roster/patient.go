package roster

// Profile is the clinical intake detail supplied by the patient side. It
// arrives through lifecycle events, not roster snapshots, so it may stay nil
// for the lifetime of a conversation.
type Profile struct {
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	Condition    string   `json:"condition"`
	Symptoms     []string `json:"symptoms,omitempty"`
	PainLocation string   `json:"painLocation,omitempty"`
	PainLevel    int      `json:"painLevel,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// Patient is one tracked conversation. Records are created on first mention
// and never removed; a disconnect only flips Online.
type Patient struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Condition string   `json:"condition,omitempty"`
	Online    bool     `json:"online"`
	Typing    bool     `json:"typing,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
}
