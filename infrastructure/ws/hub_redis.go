package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "bus:"

// RedisHub extends the local Hub across servers. Every publish is delivered
// to local subscribers directly and mirrored to Redis; the subscriber loop
// ignores mirrors from its own server so nothing is delivered twice.
type RedisHub struct {
	*Hub

	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string
}

type RedisMessage struct {
	FromServerID string `json:"fromServerId"`
	Event        Event  `json:"event"`
}

func NewRedisHub(ctx context.Context, rdb *redis.Client, serverID string) (*RedisHub, error) {
	hub := &RedisHub{
		Hub:         NewHub(),
		redisClient: rdb,
		serverID:    serverID,
	}

	hub.pubsub = rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := hub.pubsub.Receive(ctx); err != nil {
		_ = hub.pubsub.Close()
		return nil, fmt.Errorf("subscribe to redis: %w", err)
	}

	return hub, nil
}

func (h *RedisHub) Run() {
	go h.subscribeRedis()
	h.Hub.Run()
}

func (h *RedisHub) Close() {
	h.Hub.Close()
	if err := h.pubsub.Close(); err != nil {
		log.Printf("[%s] closing redis subscription: %v", h.serverID, err)
	}
}

// subscribeRedis forwards events published by other servers (CONSUMER).
func (h *RedisHub) subscribeRedis() {
	ch := h.pubsub.Channel()

	log.Printf("[%s] Redis subscriber started", h.serverID)

	for msg := range ch {
		var redisMsg RedisMessage
		if err := json.Unmarshal([]byte(msg.Payload), &redisMsg); err != nil {
			log.Printf("Error unmarshaling Redis message: %v", err)
			continue
		}

		// Don't process messages we sent ourselves
		if redisMsg.FromServerID == h.serverID {
			continue
		}

		h.deliverLocal(redisMsg.Event)
	}
}

// Publish delivers locally, then mirrors the event to Redis (PRODUCER).
func (h *RedisHub) Publish(ctx context.Context, channel, event string, payload any) error {
	e, err := newEvent(channel, event, payload)
	if err != nil {
		return err
	}

	h.deliverLocal(e)

	msgBytes, err := json.Marshal(RedisMessage{FromServerID: h.serverID, Event: e})
	if err != nil {
		return err
	}

	if err := h.redisClient.Publish(ctx, redisChannelPrefix+channel, msgBytes).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, channel, err)
	}

	return nil
}

func (h *RedisHub) ServerID() string {
	return h.serverID
}
