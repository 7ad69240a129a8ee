package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/antonkh/mafia-arena/internal/ai"
	"github.com/antonkh/mafia-arena/internal/broadcast"
	"github.com/antonkh/mafia-arena/internal/game"
	"github.com/antonkh/mafia-arena/internal/store"
)

// SessionFactory builds a fresh session wired to a room's notifier.
type SessionFactory func(notif game.Notifier) *game.Session

// Context holds the handlers' dependencies.
type Context struct {
	Rooms      *store.RoomStore
	Pool       *ai.Pool
	NewSession SessionFactory
	Log        zerolog.Logger
}

// Register installs all routes on the mux.
func (ctx *Context) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rooms", ctx.HandleCreateRoom)
	mux.HandleFunc("/rooms/", ctx.HandleRoom)
	mux.HandleFunc("/sse/", ctx.HandleSSE)
	mux.HandleFunc("/admin/providers", ctx.HandleProviderStats)
	mux.HandleFunc("/admin/providers/", ctx.HandleProviderAction)
}

// newRoom creates a room with its own hub and session.
func (ctx *Context) newRoom() *store.Room {
	return ctx.Rooms.Create(func(code string) *store.Room {
		log := ctx.Log.With().Str("room", code).Logger()
		hub := broadcast.NewHub(log)
		return &store.Room{
			Code:    code,
			Session: ctx.NewSession(broadcast.NewNotifier(hub, log)),
			Hub:     hub,
		}
	})
}

// getRoomAndPlayer validates membership using the session cookie.
func (ctx *Context) getRoomAndPlayer(r *http.Request, code string) (*store.Room, string, error) {
	room, exists := ctx.Rooms.Get(code)
	if !exists {
		return nil, "", fmt.Errorf("room not found")
	}
	cookie, err := r.Cookie("player_id")
	if err != nil {
		return nil, "", fmt.Errorf("no session")
	}
	if !room.Session.HasPlayer(cookie.Value) {
		return nil, "", fmt.Errorf("not a member")
	}
	return room, cookie.Value, nil
}

func setPlayerCookie(w http.ResponseWriter, playerID string) {
	http.SetCookie(w, &http.Cookie{
		Name:  "player_id",
		Value: playerID,
		Path:  "/",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
