package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwintz/obsidianp-sub000/internal/apperr"
)

// The graph is replaced on every rebuild, so responses are never cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Ref   string `json:"ref,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeFailure maps a service error to a response. Unknown references are
// 404s; anything else is logged and hidden behind a 500.
func writeFailure(w http.ResponseWriter, op, ref string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not found", Ref: ref})
		return
	}
	slog.Error(op+" failed", slog.String("ref", ref), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
