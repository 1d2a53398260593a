package session

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
)

// Handler exposes session issuing over HTTP.
type Handler struct {
	manager      *Manager
	secureCookie bool
	logger       zerolog.Logger
}

func NewHandler(manager *Manager, secureCookie bool, logger zerolog.Logger) *Handler {
	return &Handler{
		manager:      manager,
		secureCookie: secureCookie,
		logger:       logger.With().Str("component", "session_http").Logger(),
	}
}

// Create handles POST /v1/session. A caller that still holds a valid token
// keeps its player id and gets a renewed token; anyone else becomes a new player.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	playerID := uuid.Nil
	if claims, err := h.manager.Parse(TokenFromRequest(r)); err == nil {
		playerID = claims.PlayerID
	}

	issued, err := h.manager.Issue(playerID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to sign session token")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSessionIssueFailed, "Could not start a session")
		return
	}

	SetCookie(w, issued, h.secureCookie)
	status := http.StatusCreated
	if playerID != uuid.Nil {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(issued); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
