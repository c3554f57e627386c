package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"name-smart-go/internal/config"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/metrics"
	"name-smart-go/pkg/tasks"
)

// JobProcessor 处理单个理由任务。Drop 用于放弃一个会话的任务，清除它的待生成标记。
type JobProcessor interface {
	Process(ctx context.Context, job tasks.ReasonJob) error
	Drop(ctx context.Context, sessionID string) error
}

// queueDepth 由能报告积压任务数的队列实现，用于心跳日志。
type queueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// Worker 从任务队列阻塞读取理由任务，每个任务在独立的 goroutine 中处理。
// 同时处理的任务数达到上限时，新任务直接丢弃而不是排队。
type Worker struct {
	queue       tasks.Queue
	processor   JobProcessor
	popTimeout  time.Duration
	maxInFlight int64

	inFlight atomic.Int64
	wg       sync.WaitGroup
}

// NewWorker 创建一个新的 Worker 实例。
func NewWorker(queue tasks.Queue, processor JobProcessor, cfg config.WorkerConfig) *Worker {
	return &Worker{
		queue:       queue,
		processor:   processor,
		popTimeout:  cfg.PopTimeout,
		maxInFlight: cfg.MaxInFlight,
	}
}

// InFlight 返回正在处理的任务数。
func (w *Worker) InFlight() int64 {
	return w.inFlight.Load()
}

// Run 持续消费任务直到 ctx 被取消，返回前等待已接收的任务处理完。
func (w *Worker) Run(ctx context.Context) error {
	log.Infof("[Worker] 理由生成 worker 已启动, 并发上限: %d", w.maxInFlight)
	defer w.wg.Wait()

	for {
		job, err := w.queue.Pop(ctx, w.popTimeout)
		var malformed *tasks.MalformedJobError
		if errors.As(err, &malformed) {
			log.Errorf("[Worker] 丢弃无法解析的任务: %v", err)
			if malformed.SessionID != "" {
				w.drop(ctx, malformed.SessionID)
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("[Worker] 收到退出信号，等待进行中的任务完成")
				return nil
			}
			log.Errorf("[Worker] 读取任务失败: %v", err)
			// 队列暂时不可用时稍后重试
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			w.heartbeat(ctx)
			continue
		}
		w.dispatch(ctx, *job)
	}
}

// dispatch 在并发上限内启动任务，超出上限时丢弃。
func (w *Worker) dispatch(ctx context.Context, job tasks.ReasonJob) {
	if n := w.inFlight.Add(1); w.maxInFlight > 0 && n > w.maxInFlight {
		w.inFlight.Add(-1)
		metrics.ReasonJobsDropped.Inc()
		log.Warnf("[Worker] 进行中的任务已达上限 %d，丢弃任务, session: %s", w.maxInFlight, job.SessionID)
		w.drop(ctx, job.SessionID)
		return
	}
	metrics.ReasonJobsInFlight.Inc()

	w.wg.Add(1)
	go func() {
		defer func() {
			w.inFlight.Add(-1)
			metrics.ReasonJobsInFlight.Dec()
			w.wg.Done()
		}()
		// 已接收的任务在退出时也要处理完
		if err := w.processor.Process(context.WithoutCancel(ctx), job); err != nil {
			log.Errorf("[Worker] 处理理由任务失败, session: %s, error: %v", job.SessionID, err)
			w.drop(ctx, job.SessionID)
		}
	}()
}

func (w *Worker) drop(ctx context.Context, sessionID string) {
	if err := w.processor.Drop(context.WithoutCancel(ctx), sessionID); err != nil {
		log.Errorf("[Worker] 清除待生成标记失败, session: %s, error: %v", sessionID, err)
	}
}

func (w *Worker) heartbeat(ctx context.Context) {
	q, ok := w.queue.(queueDepth)
	if !ok {
		log.Infof("[Worker] 心跳: %s 内没有新任务, 进行中: %d", w.popTimeout, w.inFlight.Load())
		return
	}
	depth, err := q.Len(ctx)
	if err != nil {
		log.Warnf("[Worker] 心跳: 读取队列长度失败: %v", err)
		return
	}
	log.Infof("[Worker] 心跳: %s 内没有新任务, 进行中: %d, 队列积压: %d", w.popTimeout, w.inFlight.Load(), depth)
}
