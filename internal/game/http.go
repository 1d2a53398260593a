package game

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/session"
	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for the game.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for game endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "game_http").Logger(),
	}
}

// Routes mounts the handlers; the router must already authenticate.
func (h *HTTPHandlers) Routes(r chi.Router) {
	r.Get("/v1/game", h.GetState)
	r.Post("/v1/game/hints", h.RevealHint)
	r.Post("/v1/game/answers", h.SubmitAnswer)
	r.Post("/v1/game/assistant", h.AskAssistant)
	r.Post("/v1/game/reset", h.Reset)
}

// SubmitAnswerRequest is the body of POST /v1/game/answers.
type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

// AskAssistantRequest is the body of POST /v1/game/assistant.
type AskAssistantRequest struct {
	Query string `json:"query"`
}

// AssistantResponse is returned by POST /v1/game/assistant.
type AssistantResponse struct {
	Reply string `json:"reply"`
}

// GetState handles GET /v1/game
func (h *HTTPHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.playerID(w, r)
	if !ok {
		return
	}
	view, err := h.service.State(r.Context(), playerID)
	if err != nil {
		h.respondServiceError(w, playerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// RevealHint handles POST /v1/game/hints
func (h *HTTPHandlers) RevealHint(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.playerID(w, r)
	if !ok {
		return
	}
	view, err := h.service.RevealHint(r.Context(), playerID)
	if err != nil {
		h.respondServiceError(w, playerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// SubmitAnswer handles POST /v1/game/answers
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.playerID(w, r)
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	outcome, err := h.service.SubmitAnswer(r.Context(), playerID, req.Answer, nil)
	if err != nil {
		h.respondServiceError(w, playerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, outcome)
}

// AskAssistant handles POST /v1/game/assistant
func (h *HTTPHandlers) AskAssistant(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.playerID(w, r)
	if !ok {
		return
	}
	var req AskAssistantRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}

	reply, err := h.service.AskAssistant(r.Context(), playerID, req.Query, nil)
	if err != nil {
		h.respondServiceError(w, playerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, AssistantResponse{Reply: reply})
}

// Reset handles POST /v1/game/reset
func (h *HTTPHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.playerID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Reset(r.Context(), playerID)
	if err != nil {
		h.respondServiceError(w, playerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandlers) playerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	playerID, ok := session.PlayerIDFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Session required")
	}
	return playerID, ok
}

// ErrorStatus maps a service error to an HTTP status and error code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrGameComplete):
		return http.StatusConflict, httperrors.ErrCodeGameComplete
	case errors.Is(err, ErrNoMoreHints):
		return http.StatusConflict, httperrors.ErrCodeNoMoreHints
	case errors.Is(err, ErrEmptyAnswer):
		return http.StatusBadRequest, httperrors.ErrCodeValidationFailed
	case errors.Is(err, ErrQuestionNotFound):
		return http.StatusNotFound, httperrors.ErrCodeQuestionNotFound
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, httperrors.ErrCodeUpstreamError
	case errors.Is(err, ErrProgressConflict):
		return http.StatusConflict, httperrors.ErrCodeProgressConflict
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, playerID string, err error) {
	status, code := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("player_id", playerID).Msg("game request failed")
	}
	switch status {
	case http.StatusBadRequest:
		httperrors.RespondValidationError(w, Message(err), "answer")
	case http.StatusNotFound:
		httperrors.RespondNotFound(w, code, Message(err))
	case http.StatusConflict:
		httperrors.RespondConflict(w, code, Message(err))
	case http.StatusBadGateway:
		httperrors.RespondBadGateway(w, Message(err))
	default:
		httperrors.RespondInternalError(w, Message(err))
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
