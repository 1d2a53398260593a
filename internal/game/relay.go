package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/riddle-gift/pkg/http/ws"
)

// DefaultRelayChannel carries player events between API instances.
const DefaultRelayChannel = "riddle:events"

// Publisher sends a player's event to connections held by other instances.
type Publisher interface {
	Publish(ctx context.Context, playerID string, msg ws.Message) error
}

type relayEvent struct {
	Origin   string     `json:"origin"`
	PlayerID string     `json:"player_id"`
	Message  ws.Message `json:"message"`
}

// Relay forwards state pushes over Redis Pub/Sub so that tabs connected to
// different instances stay in sync. Events published by this instance are
// skipped on receipt; the local hub already has them.
type Relay struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	origin  string
	logger  zerolog.Logger
}

// NewRelay creates a Pub/Sub relay for hub.
func NewRelay(client *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	origin := uuid.NewString()
	return &Relay{
		redis:   client,
		hub:     hub,
		channel: channel,
		origin:  origin,
		logger:  logger.With().Str("component", "game_relay").Str("origin", origin).Logger(),
	}
}

// Publish implements Publisher.
func (r *Relay) Publish(ctx context.Context, playerID string, msg ws.Message) error {
	data, err := json.Marshal(relayEvent{Origin: r.origin, PlayerID: playerID, Message: msg})
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := r.redis.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and blocks until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.redis == nil || r.hub == nil {
		return nil
	}

	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Payload)
		}
	}
}

// Close releases the Redis connection.
func (r *Relay) Close() error {
	return r.redis.Close()
}

func (r *Relay) forward(payload string) {
	var evt relayEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode relay event")
		return
	}
	if evt.Origin == r.origin || evt.PlayerID == "" {
		return
	}

	err := r.hub.SendToPlayer(evt.PlayerID, evt.Message)
	if err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		r.logger.Warn().Err(err).Str("player_id", evt.PlayerID).Msg("failed to forward relay event")
	}
}
