package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamMSBEvents is the Redis stream carrying MSB activity events
	// (CLI pushes, accounting consumer pops).
	StreamMSBEvents = "omp_msb_events"

	// GroupAccounting is the consumer group for time-accounting consumers.
	GroupAccounting = "acct_pool"
)

// MSBEvent is the payload pushed to the omp_msb_events stream for every
// accept, undo or complete applied to a stored program.
type MSBEvent struct {
	ProjectID     string  `json:"project_id"`
	Checksum      string  `json:"checksum"`
	Title         string  `json:"title"`
	Action        string  `json:"action"` // accept, undo, complete
	TransactionID string  `json:"transaction_id"`
	Elapsed       float64 `json:"elapsed"` // observed seconds
	UTDate        string  `json:"utdate"`  // YYYY-MM-DD
}

// Queue manages the Redis stream used for MSB activity events.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStream creates the consumer group if it doesn't exist.
func (q *Queue) EnsureStream(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, StreamMSBEvents, GroupAccounting, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create group %s on %s: %w", GroupAccounting, StreamMSBEvents, err)
	}
	return nil
}

// PushEvent adds an MSB activity event to the stream.
func (q *Queue) PushEvent(ctx context.Context, ev MSBEvent) (string, error) {
	result, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamMSBEvents,
		Values: map[string]any{
			"project_id":     ev.ProjectID,
			"checksum":       ev.Checksum,
			"title":          ev.Title,
			"action":         ev.Action,
			"transaction_id": ev.TransactionID,
			"elapsed":        strconv.FormatFloat(ev.Elapsed, 'g', -1, 64),
			"utdate":         ev.UTDate,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("push msb event: %w", err)
	}
	return result, nil
}

// ReadEvent reads one MSB event from the stream (blocking).
func (q *Queue) ReadEvent(ctx context.Context, consumer string) (*MSBEvent, string, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupAccounting,
		Consumer: consumer,
		Streams:  []string{StreamMSBEvents, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("read msb event: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			ev := &MSBEvent{
				ProjectID:     getString(msg.Values, "project_id"),
				Checksum:      getString(msg.Values, "checksum"),
				Title:         getString(msg.Values, "title"),
				Action:        getString(msg.Values, "action"),
				TransactionID: getString(msg.Values, "transaction_id"),
				UTDate:        getString(msg.Values, "utdate"),
			}
			ev.Elapsed, _ = strconv.ParseFloat(getString(msg.Values, "elapsed"), 64)
			return ev, msg.ID, nil
		}
	}
	return nil, "", fmt.Errorf("no messages")
}

// AckEvent acknowledges a processed event.
func (q *Queue) AckEvent(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamMSBEvents, GroupAccounting, msgID).Err()
}

// Status returns the pending event count.
func (q *Queue) Status(ctx context.Context) (int64, error) {
	n, err := q.client.XLen(ctx, StreamMSBEvents).Result()
	if err != nil {
		return 0, fmt.Errorf("queue status: %w", err)
	}
	return n, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
