package store

import (
	"math/rand"
	"sync"

	"github.com/antonkh/mafia-arena/internal/broadcast"
	"github.com/antonkh/mafia-arena/internal/game"
)

// Room bundles one session with its event hub.
type Room struct {
	Code    string
	Session *game.Session
	Hub     *broadcast.Hub
}

// RoomStore manages room storage.
type RoomStore struct {
	rooms map[string]*Room
	rng   *rand.Rand
	mu    sync.RWMutex
}

// NewRoomStore creates a new room store.
func NewRoomStore(rng *rand.Rand) *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
		rng:   rng,
	}
}

// Get retrieves a room by code.
func (s *RoomStore) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, exists := s.rooms[code]
	return room, exists
}

// Set stores a room.
func (s *RoomStore) Set(code string, room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[code] = room
}

// Delete removes a room.
func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// Create picks an unused room code, builds the room for it and stores it,
// all under the write lock, so concurrent creations can neither race on the
// generator nor claim the same code.
func (s *RoomStore) Create(build func(code string) *Room) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code := s.generateCode()
		if _, exists := s.rooms[code]; !exists {
			room := build(code)
			s.rooms[code] = room
			return room
		}
	}
}

// generateCode creates a random 6-character room code. Ambiguous characters
// are excluded.
func (s *RoomStore) generateCode() string {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	code := make([]byte, 6)
	for i := range code {
		code[i] = chars[s.rng.Intn(len(chars))]
	}
	return string(code)
}
