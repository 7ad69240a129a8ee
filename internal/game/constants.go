package game

import "time"

const (
	// DefaultMafiaCount is used when the start command carries no count.
	DefaultMafiaCount = 2

	// MaxMafiaCount is the largest mafia count a start command may request.
	MaxMafiaCount = 2

	// MaxBotCount is the largest bot count a start command may request.
	MaxBotCount = 10
)

// Pacing controls the timer-driven rhythm of a session.
type Pacing struct {
	NightStartDelay time.Duration // pause before bot night actions begin
	BotActionDelay  time.Duration // pause before and between bot actions
	SpeakSeconds    int           // human speak window, in seconds
}

// DefaultPacing matches live play.
func DefaultPacing() Pacing {
	return Pacing{
		NightStartDelay: 3 * time.Second,
		BotActionDelay:  4 * time.Second,
		SpeakSeconds:    5,
	}
}
