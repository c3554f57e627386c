package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"name-smart-go/internal/config"
	"name-smart-go/internal/repository"
)

func TestDroppedJobClearsPendingMarker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Default()
	queue := repository.NewRedisJobQueue(client, cfg.Session.JobQueueKey)
	repo := repository.NewSessionRepository(client, queue, cfg.Session)
	ctx := context.Background()

	const sessionA, sessionB = "0000001157535", "0000002315070"
	for _, sid := range []string{sessionA, sessionB} {
		require.NoError(t, repo.MergePreferences(ctx, sid, girlPrefs(t), false))
	}

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	completer := &completerMock{CompleteJSONFunc: func(_ context.Context, _ string, userPrompt string, out any) error {
		started <- struct{}{}
		<-release
		res := *(out.(*map[string]any))
		for _, n := range namesInPrompt(userPrompt) {
			res[n] = "because " + n
		}
		return nil
	}}
	processor := NewProcessor(repo, nil, completer, newTokenizer(t), cfg.Worker, cfg.LLM)
	w := NewWorker(queue, processor, config.WorkerConfig{PopTimeout: 50 * time.Millisecond, MaxInFlight: 1})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx) }()

	_, err := repo.EnqueueReasonJob(ctx, sessionA, []string{"Ada"})
	require.NoError(t, err)
	<-started

	// A 还在处理中，B 的任务会被丢弃
	_, err = repo.EnqueueReasonJob(ctx, sessionB, []string{"Ivy"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		pending, err := repo.HasPendingReasons(ctx, sessionB)
		return err == nil && !pending
	}, time.Second, 5*time.Millisecond)

	pending, err := repo.HasPendingReasons(ctx, sessionA)
	require.NoError(t, err)
	assert.True(t, pending)

	close(release)
	cancel()
	require.NoError(t, <-done)

	pending, err = repo.HasPendingReasons(ctx, sessionA)
	require.NoError(t, err)
	assert.False(t, pending)
	reason, err := repo.GetReason(ctx, sessionA, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "because Ada", reason)

	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
