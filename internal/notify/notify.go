// Package notify announces saved captures on a Redis channel.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel captures are announced on.
const DefaultChannel = "peacecam:captures"

// EventCaptureSaved names the message kind.
const EventCaptureSaved = "capture.saved"

const publishTimeout = 2 * time.Second

// Message is the JSON payload published per capture.
type Message struct {
	Event   string         `json:"event"`
	Capture capture.Result `json:"capture"`
}

// Publisher is the subset of *redis.Client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Config selects the Redis server and channel.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis publishes capture events without blocking the caller.
type Redis struct {
	client  Publisher
	closer  func() error
	channel string
	wg      sync.WaitGroup
}

// NewRedis connects to cfg.Addr. A failed ping is logged but not fatal, the
// server may come up later.
func NewRedis(cfg Config) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn(log.Fields{"addr": cfg.Addr, "error": err}, "redis not reachable")
	} else {
		log.Info(log.Fields{"addr": cfg.Addr}, "connected to redis")
	}

	n := NewRedisWithPublisher(client, cfg.Channel)
	n.closer = client.Close
	return n
}

// NewRedisWithPublisher wraps an existing publisher.
func NewRedisWithPublisher(p Publisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: p, channel: channel}
}

// Channel returns the pub/sub channel name.
func (n *Redis) Channel() string {
	return n.channel
}

// CaptureSaved publishes r in the background.
func (n *Redis) CaptureSaved(_ context.Context, r capture.Result) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := n.Publish(ctx, r); err != nil {
			log.Warn(log.Fields{"capture_id": r.ID, "error": err}, "capture notification failed")
		}
	}()
}

// Publish sends one capture message synchronously.
func (n *Redis) Publish(ctx context.Context, r capture.Result) error {
	payload, err := jsoniter.Marshal(Message{Event: EventCaptureSaved, Capture: r})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.channel, err)
	}

	log.Debug(log.Fields{"capture_id": r.ID, "channel": n.channel, "receivers": receivers}, "capture announced")
	return nil
}

// Close waits for in-flight publishes and closes the client.
func (n *Redis) Close() error {
	n.wg.Wait()
	if n.closer != nil {
		return n.closer()
	}
	return nil
}
