package game

import (
	"net/http"

	"github.com/gokatarajesh/riddle-gift/internal/session"
	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
)

// HandleWebSocket upgrades an authenticated request to the game channel.
// The session middleware has already resolved the player.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID, ok := session.PlayerIDFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Session required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(r.Context(), conn, playerID)
}
