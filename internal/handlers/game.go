package handlers

import (
	"net/http"
)

// handleStart begins the game with the requested mafia and bot counts.
func (ctx *Context) handleStart(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, _, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req struct {
		MafiaCount int `json:"mafiaCount"`
		BotCount   int `json:"botCount"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := room.Session.Start(req.MafiaCount, req.BotCount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// handleNightAction records the caller's covert night submission. The
// session silently drops invalid commands, so this always answers 202.
func (ctx *Context) handleNightAction(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, playerID, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room.Session.NightAction(playerID, req.Target)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleDayVote records the caller's exile vote; a null or absent target
// means abstain.
func (ctx *Context) handleDayVote(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, playerID, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req struct {
		Target *string `json:"target"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room.Session.DayVote(playerID, req.Target)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleStartSpeak opens the caller's speaking window.
func (ctx *Context) handleStartSpeak(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, playerID, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	room.Session.StartSpeak(playerID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleRestart returns the room to the waiting phase.
func (ctx *Context) handleRestart(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	room, _, err := ctx.getRoomAndPlayer(r, code)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	room.Session.Restart()
	writeJSON(w, http.StatusOK, map[string]string{"status": "waiting"})
}
