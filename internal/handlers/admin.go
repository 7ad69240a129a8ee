package handlers

import (
	"net/http"
	"strings"
)

// HandleProviderStats returns the per-provider health counters.
func (ctx *Context) HandleProviderStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": ctx.Pool.Stats()})
}

// HandleProviderAction dispatches /admin/providers/{...} commands:
// a global error reset, or enabling/disabling one provider.
func (ctx *Context) HandleProviderAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/providers/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "reset":
		ctx.Pool.ResetAll()
		ctx.Log.Info().Msg("provider error counters reset")
		writeJSON(w, http.StatusOK, map[string]any{"providers": ctx.Pool.Stats()})

	case len(parts) == 2 && (parts[1] == "enable" || parts[1] == "disable"):
		name := parts[0]
		enable := parts[1] == "enable"
		if !ctx.Pool.SetEnabled(name, enable) {
			writeError(w, http.StatusNotFound, "unknown provider")
			return
		}
		ctx.Log.Info().Str("provider", name).Bool("enabled", enable).Msg("provider toggled")
		writeJSON(w, http.StatusOK, map[string]any{"providers": ctx.Pool.Stats()})

	default:
		writeError(w, http.StatusNotFound, "unknown action")
	}
}
