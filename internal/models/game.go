package models

// VoteEntry is one covert submission: who voted and for whom.
type VoteEntry struct {
	From   string `json:"from"`
	Target string `json:"target"`
}

// Utterance is one discussion-phase statement.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// LogEntry is one line of the public session event log.
type LogEntry struct {
	Text string `json:"text"`
	Kind string `json:"type,omitempty"` // "" for system lines, "bot" for bot speech
	From string `json:"from,omitempty"`
}

// Snapshot is the full session state broadcast to every client after a
// state change.
type Snapshot struct {
	Phase          Phase        `json:"phase"`
	Round          int          `json:"round"`
	Log            []LogEntry   `json:"log"`
	Players        []PlayerView `json:"players"`
	CurrentSpeaker *int         `json:"currentSpeaker"`
	SpeakTimer     *int         `json:"speakTimer"`
}
