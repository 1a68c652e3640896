package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

const queueKeyPrefix = "prismy:queue:"

// RedisQueue implements Queue on Redis lists. RPUSH and BLPOP give durable
// FIFO semantics with an atomic claim across concurrent consumers.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue backed by the given Redis client
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func queueKey(stage models.Stage) string {
	return queueKeyPrefix + stage.String()
}

// Push appends a job id to the tail of a stage's queue
func (q *RedisQueue) Push(ctx context.Context, stage models.Stage, jobID string) error {
	if err := q.client.RPush(ctx, queueKey(stage), jobID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s to %s: %w", jobID, stage, err)
	}
	return nil
}

// Pop blocks until an entry is available or the timeout elapses
func (q *RedisQueue) Pop(ctx context.Context, stage models.Stage, timeout time.Duration) (string, bool, error) {
	res, err := q.client.BLPop(ctx, timeout, queueKey(stage)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to pop from %s queue: %w", stage, err)
	}
	// BLPOP returns [key, value]
	if len(res) != 2 {
		return "", false, fmt.Errorf("unexpected BLPOP reply for %s queue: %v", stage, res)
	}
	return res[1], true, nil
}

// Len returns the pending entry count for a stage
func (q *RedisQueue) Len(ctx context.Context, stage models.Stage) (int64, error) {
	n, err := q.client.LLen(ctx, queueKey(stage)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s queue length: %w", stage, err)
	}
	return n, nil
}
