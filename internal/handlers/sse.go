package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/antonkh/mafia-arena/internal/broadcast"
	"github.com/antonkh/mafia-arena/internal/models"
)

// HandleSSE streams room events to one client connection.
func (ctx *Context) HandleSSE(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/sse/"))
	if code == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusBadRequest, "invalid URL")
		return
	}

	room, playerID, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable buffering in nginx/proxies
	flusher.Flush()

	clientChan := make(chan broadcast.Message, broadcast.BufferSize)
	room.Hub.Add(clientChan, playerID)
	defer room.Hub.Remove(clientChan)

	// initial state, plus the caller's role when a game is running
	snap, _ := json.Marshal(room.Session.Snapshot())
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", broadcast.EventState, snap)
	if role, ok := room.Session.RoleOf(playerID); ok {
		payload, _ := json.Marshal(struct {
			Role models.Role `json:"role"`
		}{Role: role})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", broadcast.EventRole, payload)
	}
	flusher.Flush()

	ctx.Log.Debug().Str("room", code).Str("player", playerID).Msg("sse client connected")

	reqCtx := r.Context()
	for {
		select {
		case <-reqCtx.Done():
			ctx.Log.Debug().Str("room", code).Str("player", playerID).Msg("sse client disconnected")
			return
		case msg := <-clientChan:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
