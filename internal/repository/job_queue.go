package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"name-smart-go/pkg/tasks"
)

// RedisJobQueue 用一个共享的 Redis list 做理由任务队列，RPUSH 入队、BLPOP 出队。队列本身不设过期时间。
type RedisJobQueue struct {
	client *redis.Client
	key    string
}

func NewRedisJobQueue(client *redis.Client, key string) *RedisJobQueue {
	return &RedisJobQueue{client: client, key: key}
}

func (q *RedisJobQueue) Push(ctx context.Context, job tasks.ReasonJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal reason job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push reason job: %w", err)
	}
	return nil
}

func (q *RedisJobQueue) Pop(ctx context.Context, timeout time.Duration) (*tasks.ReasonJob, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop reason job: %w", err)
	}
	// res[0] 是 key，res[1] 是任务内容
	return tasks.DecodeJob([]byte(res[1]))
}

// Len 返回队列中尚未被消费的任务数。
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
