// Package kafka 提供了基于 Kafka 的理由任务队列，作为 Redis list 之外的另一种传输方式。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"name-smart-go/internal/config"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/tasks"
)

// JobQueue 用一个 topic 传递理由任务。消息在交给调用方之前就提交 offset，
// 与 Redis BLPOP 一样是至多一次投递。
type JobQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewJobQueue 初始化 Kafka 生产者和消费者。
func NewJobQueue(cfg config.KafkaConfig) *JobQueue {
	brokers := strings.Split(cfg.Brokers, ",")
	q := &JobQueue{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
	}
	log.Infof("[KafkaQueue] 初始化成功, topic: %s, group: %s", cfg.Topic, cfg.GroupID)
	return q
}

// Push 以会话标识为消息 key，同一会话的任务落在同一分区，保持先后顺序。
func (q *JobQueue) Push(ctx context.Context, job tasks.ReasonJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal reason job: %w", err)
	}
	if err := q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(job.SessionID), Value: payload}); err != nil {
		return fmt.Errorf("failed to write reason job to kafka: %w", err)
	}
	return nil
}

// Pop 最多等待 timeout。格式错误的消息也会提交 offset，并以 *tasks.MalformedJobError 返回。
func (q *JobQueue) Pop(ctx context.Context, timeout time.Duration) (*tasks.ReasonJob, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	m, err := q.reader.FetchMessage(fetchCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch reason job from kafka: %w", err)
	}

	if err := q.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("[KafkaQueue] 提交 offset 失败: offset %d, error: %v", m.Offset, err)
	}
	return tasks.DecodeJob(m.Value)
}

// Close 关闭生产者和消费者。
func (q *JobQueue) Close() error {
	return errors.Join(q.writer.Close(), q.reader.Close())
}
