package models

// Role is a player's secret game role.
type Role string

const (
	RoleMafia     Role = "mafia"
	RoleDoctor    Role = "doctor"
	RoleDetective Role = "detective"
	RoleCitizen   Role = "citizen"
	RoleNone      Role = ""
)

// Player represents a participant in a session, human or bot.
type Player struct {
	ID    string
	Name  string
	IsBot bool
	Alive bool
	Role  Role
}

// PlayerView is the public projection of a player sent to clients.
type PlayerView struct {
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
}
