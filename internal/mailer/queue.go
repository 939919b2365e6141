package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Dequeue when nothing arrived before the poll
// timeout. Callers simply poll again.
var ErrQueueEmpty = errors.New("mailer: queue empty")

// Queue is the email outbox.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	Dequeue(ctx context.Context) (Message, error)
}

// RedisQueue stores messages in a Redis list: LPUSH to enqueue, BRPOP to
// dequeue, so messages survive process restarts and are shared by replicas.
type RedisQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisQueue builds a queue on the given list key.
func NewRedisQueue(client *redis.Client, key string, pollTimeout time.Duration) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, timeout: pollTimeout}
}

// Enqueue pushes msg onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Dequeue blocks up to the poll timeout for the oldest message.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, ErrQueueEmpty
	}
	if err != nil {
		return Message{}, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return Message{}, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return Message{}, fmt.Errorf("decode email: %w", err)
	}
	return msg, nil
}

// ChannelQueue is an in-process outbox used when Redis is not configured.
// Messages are lost on restart.
type ChannelQueue struct {
	ch chan Message
}

// NewChannelQueue builds a buffered in-process queue.
func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 256
	}
	return &ChannelQueue{ch: make(chan Message, size)}
}

// Enqueue adds msg without blocking; a full buffer is an error.
func (q *ChannelQueue) Enqueue(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("mailer: in-process queue full")
	}
}

// Dequeue waits for the next message or context cancellation.
func (q *ChannelQueue) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len reports the number of buffered messages.
func (q *ChannelQueue) Len() int { return len(q.ch) }
