package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Topic published when a user joins the referral program
const TopicInvitedReferral = "invitedReferral"

// Publisher sends notification events to external consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// RedisPublisher publishes JSON payloads over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, topic, data).Err()
}

// Dispatch publishes asynchronously. Delivery is best-effort, at most
// once: a failed publish is logged and never fails the caller.
func Dispatch(pub Publisher, topic string, payload interface{}) {
	if pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pub.Publish(ctx, topic, payload); err != nil {
			log.Printf("Failed to publish %s event: %v", topic, err)
		}
	}()
}
