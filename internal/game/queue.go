package game

import "github.com/antonkh/mafia-arena/internal/models"

// SpeakingQueue orders the living players for one discussion pass and
// exposes exactly one current speaker at a time.
type SpeakingQueue struct {
	ids []string
	pos int
}

// NewSpeakingQueue builds a queue over the living players in roster order.
func NewSpeakingQueue(players []*models.Player) *SpeakingQueue {
	q := &SpeakingQueue{}
	for _, p := range players {
		if p.Alive {
			q.ids = append(q.ids, p.ID)
		}
	}
	return q
}

// Current returns the current speaker's ID, or false when the pass is over.
func (q *SpeakingQueue) Current() (string, bool) {
	if q.pos >= len(q.ids) {
		return "", false
	}
	return q.ids[q.pos], true
}

// Position returns how many speakers have already finished this pass.
func (q *SpeakingQueue) Position() int { return q.pos }

// Advance moves past the current speaker.
func (q *SpeakingQueue) Advance() {
	if q.pos < len(q.ids) {
		q.pos++
	}
}

// Exhausted reports whether every speaker has had their turn.
func (q *SpeakingQueue) Exhausted() bool { return q.pos >= len(q.ids) }
