package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/server"
	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
	ws "github.com/gokatarajesh/riddle-gift/pkg/http/ws"
)

// Handler serves the game over WebSocket connections.
type Handler struct {
	service   *Service
	hub       *ws.Hub
	publisher Publisher
	upgrader  *websocket.Upgrader
	logger    zerolog.Logger
}

// NewHandler creates a game WebSocket handler that only accepts same-host
// browser origins until WithAllowedOrigins says otherwise.
func NewHandler(service *Service, hub *ws.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: server.NewWSUpgrader(nil),
		logger:   logger.With().Str("component", "game_ws").Logger(),
	}
}

// WithAllowedOrigins lets browsers on origins open the game channel.
func (h *Handler) WithAllowedOrigins(origins []string) *Handler {
	h.upgrader = server.NewWSUpgrader(origins)
	return h
}

// WithPublisher also sends every broadcast to p, for connections held by
// other instances.
func (h *Handler) WithPublisher(p Publisher) *Handler {
	h.publisher = p
	return h
}

// HandleConnection runs one authenticated connection until it closes.
// The current state is pushed as soon as the connection is registered.
func (h *Handler) HandleConnection(ctx context.Context, conn *websocket.Conn, playerID string) {
	wsConn := ws.NewConnection(conn, h.logger.With().Str("player_id", playerID).Logger())
	h.hub.Register(playerID, wsConn)

	go wsConn.WritePump()

	if err := h.handleRequestState(ctx, wsConn, playerID, ""); err != nil {
		h.logger.Warn().Err(err).Str("player_id", playerID).Msg("initial state failed")
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, wsConn, playerID, msg)
	})

	h.hub.Unregister(playerID, wsConn)
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, conn *ws.Connection, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeRequestState:
		return h.handleRequestState(ctx, conn, playerID, msg.RequestID)
	case ws.TypeRevealHint:
		return h.handleRevealHint(ctx, conn, playerID, msg.RequestID)
	case ws.TypeSubmitAnswer:
		return h.handleSubmitAnswer(ctx, conn, playerID, msg)
	case ws.TypeAskAssistant:
		return h.handleAskAssistant(ctx, conn, playerID, msg)
	case ws.TypeReset:
		return h.handleReset(ctx, playerID, msg.RequestID)
	case ws.TypePing:
		return h.send(conn, ws.TypePong, msg.RequestID, nil)
	default:
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleRequestState(ctx context.Context, conn *ws.Connection, playerID, requestID string) error {
	view, err := h.service.State(ctx, playerID)
	if err != nil {
		return h.sendServiceError(conn, requestID, err)
	}
	return h.send(conn, ws.TypeState, requestID, view)
}

func (h *Handler) handleRevealHint(ctx context.Context, conn *ws.Connection, playerID, requestID string) error {
	view, err := h.service.RevealHint(ctx, playerID)
	if err != nil {
		return h.sendServiceError(conn, requestID, err)
	}
	return h.broadcastState(ctx, playerID, requestID, view)
}

func (h *Handler) handleSubmitAnswer(ctx context.Context, conn *ws.Connection, playerID string, msg ws.Message) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload")
	}

	outcome, err := h.service.SubmitAnswer(ctx, playerID, req.Answer, func(delta string) error {
		return h.send(conn, ws.TypeGradingDelta, msg.RequestID, ws.DeltaPayload{Delta: delta})
	})
	if err != nil {
		return h.sendServiceError(conn, msg.RequestID, err)
	}
	if err := h.send(conn, ws.TypeGradingResult, msg.RequestID, outcome); err != nil {
		return err
	}
	if !outcome.Correct {
		return nil
	}
	if outcome.View.Complete {
		return h.broadcast(ctx, playerID, ws.TypeGameComplete, msg.RequestID, outcome.View)
	}
	return h.broadcastState(ctx, playerID, msg.RequestID, outcome.View)
}

func (h *Handler) handleAskAssistant(ctx context.Context, conn *ws.Connection, playerID string, msg ws.Message) error {
	var req ws.AskAssistantPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid ask_assistant payload")
		}
	}

	reply, err := h.service.AskAssistant(ctx, playerID, req.Query, func(delta string) error {
		return h.send(conn, ws.TypeAssistantDelta, msg.RequestID, ws.DeltaPayload{Delta: delta})
	})
	if err != nil {
		return h.sendServiceError(conn, msg.RequestID, err)
	}
	return h.send(conn, ws.TypeAssistantReply, msg.RequestID, ws.AssistantReplyPayload{Reply: reply})
}

func (h *Handler) handleReset(ctx context.Context, playerID, requestID string) error {
	view, err := h.service.Reset(ctx, playerID)
	if err != nil {
		return h.broadcast(ctx, playerID, ws.TypeError, requestID, errorPayload(err))
	}
	return h.broadcastState(ctx, playerID, requestID, view)
}

func (h *Handler) broadcastState(ctx context.Context, playerID, requestID string, view View) error {
	return h.broadcast(ctx, playerID, ws.TypeState, requestID, view)
}

func (h *Handler) broadcast(ctx context.Context, playerID, msgType, requestID string, payload any) error {
	msg, err := ws.NewMessage(msgType, requestID, payload)
	if err != nil {
		return err
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, playerID, msg); err != nil {
			h.logger.Warn().Err(err).Str("player_id", playerID).Msg("relay publish failed")
		}
	}
	return h.hub.SendToPlayer(playerID, msg)
}

func (h *Handler) send(conn *ws.Connection, msgType, requestID string, payload any) error {
	msg, err := ws.NewMessage(msgType, requestID, payload)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

func (h *Handler) sendError(conn *ws.Connection, requestID, code, message string) error {
	return h.send(conn, ws.TypeError, requestID, ws.ErrorPayload{Code: code, Message: message})
}

func (h *Handler) sendServiceError(conn *ws.Connection, requestID string, err error) error {
	if errors.Is(err, ErrUpstream) || !isDomainError(err) {
		h.logger.Error().Err(err).Msg("game message failed")
	}
	return h.send(conn, ws.TypeError, requestID, errorPayload(err))
}

func errorPayload(err error) ws.ErrorPayload {
	_, code := ErrorStatus(err)
	return ws.ErrorPayload{Code: code, Message: Message(err)}
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrGameComplete) || errors.Is(err, ErrNoMoreHints) ||
		errors.Is(err, ErrEmptyAnswer) || errors.Is(err, ErrQuestionNotFound)
}
