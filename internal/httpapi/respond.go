package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	temoaerrors "github.com/pborenstein/temoa/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError renders err as a JSON failure object, never alongside a
// result list — a response is either a result list or a failure object,
// not both. The HTTP status is the one the caller passes; statusForError
// derives it from the error's taxonomy Kind where a caller wants that.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
	})
}

// statusForError maps a TemoaError's taxonomy Kind to the HTTP status
// code it should produce. Errors without a recognized Kind are unexpected (500).
func statusForError(err error) int {
	var te *temoaerrors.TemoaError
	if !errors.As(err, &te) {
		return http.StatusInternalServerError
	}

	switch te.Kind {
	case temoaerrors.KindConfig:
		return http.StatusBadRequest
	case temoaerrors.KindVaultRead:
		return http.StatusNotFound
	case temoaerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case temoaerrors.KindIndex, temoaerrors.KindSearch:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
