package models

// Phase represents the current state of the session.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseIntroDay Phase = "intro_day"
	PhaseNight    Phase = "night"
	PhaseDay      Phase = "day"
	PhaseFinished Phase = "finished"
)
