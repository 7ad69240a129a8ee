package handlers

import (
	"net/http"
	"strings"
)

// HandleCreateRoom creates a new room and joins the creator to it.
func (ctx *Context) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	room := ctx.newRoom()
	playerID, err := room.Session.Join(req.Name)
	if err != nil {
		ctx.Rooms.Delete(room.Code)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setPlayerCookie(w, playerID)
	ctx.Log.Info().Str("room", room.Code).Str("player", req.Name).Msg("room created")
	writeJSON(w, http.StatusCreated, map[string]string{
		"room":     room.Code,
		"playerId": playerID,
	})
}

// HandleRoom dispatches /rooms/{code}/{action} requests.
func (ctx *Context) HandleRoom(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/rooms/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid URL")
		return
	}
	code := strings.ToUpper(parts[0])

	switch parts[1] {
	case "join":
		ctx.handleJoin(w, r, code)
	case "state":
		ctx.handleState(w, r, code)
	case "start":
		ctx.handleStart(w, r, code)
	case "night-action":
		ctx.handleNightAction(w, r, code)
	case "day-vote":
		ctx.handleDayVote(w, r, code)
	case "start-speak":
		ctx.handleStartSpeak(w, r, code)
	case "restart":
		ctx.handleRestart(w, r, code)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
	}
}

// handleJoin adds a player to an existing room.
func (ctx *Context) handleJoin(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	room, exists := ctx.Rooms.Get(code)
	if !exists {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playerID, err := room.Session.Join(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setPlayerCookie(w, playerID)
	writeJSON(w, http.StatusOK, map[string]string{
		"room":     room.Code,
		"playerId": playerID,
	})
}

// handleState returns the public snapshot.
func (ctx *Context) handleState(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, exists := ctx.Rooms.Get(code)
	if !exists {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, room.Session.Snapshot())
}
