package broadcast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SSE event names pushed over the stream.
const (
	EventState          = "state"
	EventRole           = "role"
	EventDetectiveCheck = "detective-result"
	EventMafiaVotes     = "mafia-votes"
)

const (
	// BufferSize is the per-client channel depth.
	BufferSize = 10
	// sendTimeout bounds a send to one slow client.
	sendTimeout = time.Second
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  []byte
}

// Hub fans session events out to the connected SSE clients of one room.
// Sends never block the session: a client that cannot keep up within the
// timeout is skipped.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Message]string // channel -> playerID
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan Message]string),
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// Add registers a client channel for a player. Multiple connections per
// player are allowed; each gets its own channel.
func (h *Hub) Add(client chan Message, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dup := 0
	for _, pid := range h.clients {
		if pid == playerID {
			dup++
		}
	}
	if dup > 0 {
		h.log.Warn().Str("player", playerID).Int("extra", dup).Msg("player opened additional SSE connection")
	}
	h.clients[client] = playerID
}

// Remove unregisters a client channel. The channel is deliberately left
// open: sends run against a lock-free snapshot of the client map, so a
// concurrent Broadcast may still be writing to it. The reader exits via its
// request context, not via channel close.
func (h *Hub) Remove(client chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	h.log.Debug().Int("clients", len(h.clients)).Msg("client removed")
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	clients := make([]chan Message, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	// send without holding the lock
	for _, client := range clients {
		select {
		case client <- msg:
		case <-time.After(sendTimeout):
			h.log.Debug().Str("event", msg.Event).Msg("timeout sending to client")
		}
	}
}

// SendTo sends a message to every connection of one player.
func (h *Hub) SendTo(playerID string, msg Message) {
	h.mu.RLock()
	var clients []chan Message
	for client, pid := range h.clients {
		if pid == playerID {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client <- msg:
		case <-time.After(sendTimeout):
			h.log.Debug().Str("event", msg.Event).Str("player", playerID).Msg("timeout sending to client")
		}
	}
}
