// Package tasks 定义了写入理由任务队列的任务结构和队列接口。
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ReasonJob 是一次推荐理由生成任务，序列化后形如 {"session_id": "...", "names": [...]}。
type ReasonJob struct {
	SessionID string   `json:"session_id"`
	Names     []string `json:"names"`
}

// Queue 是 FIFO 的任务队列。
type Queue interface {
	Push(ctx context.Context, job ReasonJob) error
	// Pop 最多阻塞 timeout，超时没有任务时返回 (nil, nil)
	Pop(ctx context.Context, timeout time.Duration) (*ReasonJob, error)
}

// MalformedJobError 表示出队的消息无法解析为 ReasonJob。消息已经离开队列，
// 能从中认出会话标识时 SessionID 非空。
type MalformedJobError struct {
	SessionID string
	Payload   string
	Err       error
}

func (e *MalformedJobError) Error() string {
	return fmt.Sprintf("malformed reason job %q: %v", e.Payload, e.Err)
}

func (e *MalformedJobError) Unwrap() error { return e.Err }

// DecodeJob 解析队列中的一条消息。
func DecodeJob(payload []byte) (*ReasonJob, error) {
	var job ReasonJob
	if err := json.Unmarshal(payload, &job); err != nil {
		malformed := &MalformedJobError{Payload: string(payload), Err: err}
		var partial struct {
			SessionID string `json:"session_id"`
		}
		if json.Unmarshal(payload, &partial) == nil {
			malformed.SessionID = partial.SessionID
		}
		return nil, malformed
	}
	return &job, nil
}
