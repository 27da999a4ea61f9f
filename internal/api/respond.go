package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/analysis"
	"github.com/lox/floatchat/internal/chat"
	"github.com/lox/floatchat/internal/mapview"
	"github.com/lox/floatchat/internal/store"
)

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, chat.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrNotBotMessage),
		errors.Is(err, chat.ErrNoSourceQuery),
		errors.Is(err, analysis.ErrUnsupportedFile),
		errors.Is(err, mapview.ErrInvalidCoordinate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status code and writes {"error": ...}. Server
// errors are logged and their detail is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("http: handler failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
