package broadcast

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/antonkh/mafia-arena/internal/models"
)

// Notifier adapts a Hub to the session's notification interface: public
// state goes to everyone, role and investigation material only to the
// players entitled to it.
type Notifier struct {
	hub *Hub
	log zerolog.Logger
}

// NewNotifier wraps a hub.
func NewNotifier(hub *Hub, log zerolog.Logger) *Notifier {
	return &Notifier{hub: hub, log: log.With().Str("component", "notifier").Logger()}
}

// StateChanged pushes the public snapshot to every client.
func (n *Notifier) StateChanged(snap models.Snapshot) {
	n.hub.Broadcast(Message{Event: EventState, Data: n.marshal(snap)})
}

// RoleAssigned tells one player their secret role.
func (n *Notifier) RoleAssigned(playerID string, role models.Role) {
	payload := struct {
		Role models.Role `json:"role"`
	}{Role: role}
	n.hub.SendTo(playerID, Message{Event: EventRole, Data: n.marshal(payload)})
}

// DetectiveResult delivers an investigation result to the detective alone.
func (n *Notifier) DetectiveResult(playerID string, target string, role string) {
	payload := struct {
		Target string `json:"target"`
		Role   string `json:"role"`
	}{Target: target, Role: role}
	n.hub.SendTo(playerID, Message{Event: EventDetectiveCheck, Data: n.marshal(payload)})
}

// MafiaVotes shares the current kill tally with the living mafia members.
func (n *Notifier) MafiaVotes(playerIDs []string, votes []models.VoteEntry, consensus string) {
	payload := struct {
		Votes     []models.VoteEntry `json:"votes"`
		Consensus string             `json:"consensus,omitempty"`
	}{Votes: votes, Consensus: consensus}
	data := n.marshal(payload)
	for _, id := range playerIDs {
		n.hub.SendTo(id, Message{Event: EventMafiaVotes, Data: data})
	}
}

func (n *Notifier) marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		n.log.Error().Err(err).Msg("marshaling event payload")
		return []byte("{}")
	}
	return data
}
