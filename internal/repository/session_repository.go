// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/tasks"
)

// 乐观事务冲突时的最大重试次数
const maxTxRetries = 3

// SessionRepository 定义了会话状态（偏好、反馈、已展示名字、推荐理由）的操作接口。
// 每个方法都是一次往返，多键写入在同一个事务中完成，写入时刷新会话键的过期时间。
type SessionRepository interface {
	GetPreferences(ctx context.Context, sessionID string) (model.PreferenceSet, error)
	// MergePreferences 按 key 覆盖写入；replaceFirst 为 true 时先清空已有偏好。
	MergePreferences(ctx context.Context, sessionID string, prefs model.PreferenceSet, replaceFirst bool) error

	UpdateSentiments(ctx context.Context, sessionID string, sentiments model.SentimentSet) error
	// GetSentiments 只返回最近写入的 maxCount 条反馈。
	GetSentiments(ctx context.Context, sessionID string, maxCount int) (model.SentimentSet, error)
	GetSentiment(ctx context.Context, sessionID, name string) (*model.Sentiment, error)

	AppendDisplayedNames(ctx context.Context, sessionID string, names []string) error
	GetDisplayedNames(ctx context.Context, sessionID string) ([]string, error)

	// EnqueueReasonJob 过滤掉已有理由的名字，剩余非空时才入队，返回是否入队。
	EnqueueReasonJob(ctx context.Context, sessionID string, names []string) (bool, error)
	CacheReasons(ctx context.Context, sessionID string, reasons map[string]string, clearPendingMarker bool) error
	GetReasons(ctx context.Context, sessionID string) (map[string]string, error)
	GetReason(ctx context.Context, sessionID, name string) (string, error)
	HasPendingReasons(ctx context.Context, sessionID string) (bool, error)
}

type redisSessionRepository struct {
	redisClient *redis.Client
	queue       tasks.Queue
	cfg         config.SessionConfig
	now         func() time.Time
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(redisClient *redis.Client, queue tasks.Queue, cfg config.SessionConfig) SessionRepository {
	return newSessionRepository(redisClient, queue, cfg, time.Now)
}

func newSessionRepository(redisClient *redis.Client, queue tasks.Queue, cfg config.SessionConfig, now func() time.Time) *redisSessionRepository {
	return &redisSessionRepository{redisClient: redisClient, queue: queue, cfg: cfg, now: now}
}

func prefKey(sessionID string) string { return fmt.Sprintf("pref-%s", sessionID) }
func sentimentKey(sessionID string) string { return fmt.Sprintf("sentiment-%s", sessionID) }
func sentimentTSKey(sessionID string) string { return fmt.Sprintf("sentiment-ts-%s", sessionID) }
func displayedKey(sessionID string) string { return fmt.Sprintf("proposal-%s", sessionID) }
func reasonKey(sessionID string) string { return fmt.Sprintf("proposal-reason-%s", sessionID) }
func reasonPendingKey(sessionID string) string { return fmt.Sprintf("reason-pending-%s", sessionID) }

// 有序集合的分数使用微秒时间戳，同一批次内依次加 1 保证顺序
func (r *redisSessionRepository) stamp() float64 {
	return float64(r.now().UnixMicro())
}

func (r *redisSessionRepository) GetPreferences(ctx context.Context, sessionID string) (model.PreferenceSet, error) {
	raw, err := r.redisClient.HGetAll(ctx, prefKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	prefs := make(model.PreferenceSet, len(raw))
	for k, v := range raw {
		p, err := model.ParsePreference(model.PrefKey(k), v)
		if err != nil {
			// 存储中的脏数据不影响其它偏好
			log.Warnf("[SessionRepository] 忽略无法解析的偏好, session: %s, key: %s, error: %v", sessionID, k, err)
			continue
		}
		if p != nil {
			prefs[p.Key()] = p
		}
	}
	return prefs, nil
}

func (r *redisSessionRepository) MergePreferences(ctx context.Context, sessionID string, prefs model.PreferenceSet, replaceFirst bool) error {
	if len(prefs) == 0 && !replaceFirst {
		return nil
	}
	key := prefKey(sessionID)
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if replaceFirst {
			pipe.Del(ctx, key)
		}
		if len(prefs) > 0 {
			values := make(map[string]interface{}, len(prefs))
			for k, v := range prefs.Flat() {
				values[k] = v
			}
			pipe.HSet(ctx, key, values)
			pipe.Expire(ctx, key, r.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge preferences: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) UpdateSentiments(ctx context.Context, sessionID string, sentiments model.SentimentSet) error {
	if len(sentiments) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(sentiments))
	names := sentiments.Names()
	members := make([]*redis.Z, 0, len(names))
	base := r.stamp()
	for i, name := range names {
		payload, err := json.Marshal(sentiments[name])
		if err != nil {
			return fmt.Errorf("failed to marshal sentiment: %w", err)
		}
		values[name] = payload
		members = append(members, &redis.Z{Score: base + float64(i), Member: name})
	}

	hashKey, tsKey := sentimentKey(sessionID), sentimentTSKey(sessionID)
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey, values)
		pipe.ZAdd(ctx, tsKey, members...)
		pipe.Expire(ctx, hashKey, r.cfg.TTL)
		pipe.Expire(ctx, tsKey, r.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update sentiments: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) GetSentiments(ctx context.Context, sessionID string, maxCount int) (model.SentimentSet, error) {
	if maxCount <= 0 {
		maxCount = r.cfg.MaxSentiments
	}
	names, err := r.redisClient.ZRevRange(ctx, sentimentTSKey(sessionID), 0, int64(maxCount-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiment index: %w", err)
	}
	out := make(model.SentimentSet, len(names))
	if len(names) == 0 {
		return out, nil
	}
	values, err := r.redisClient.HMGet(ctx, sentimentKey(sessionID), names...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiments: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var sentiment model.Sentiment
		if err := json.Unmarshal([]byte(s), &sentiment); err != nil {
			log.Warnf("[SessionRepository] 忽略无法解析的反馈, session: %s, name: %s, error: %v", sessionID, names[i], err)
			continue
		}
		out[names[i]] = sentiment
	}
	return out, nil
}

func (r *redisSessionRepository) GetSentiment(ctx context.Context, sessionID, name string) (*model.Sentiment, error) {
	raw, err := r.redisClient.HGet(ctx, sentimentKey(sessionID), model.CanonicalName(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiment: %w", err)
	}
	var sentiment model.Sentiment
	if err := json.Unmarshal([]byte(raw), &sentiment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sentiment: %w", err)
	}
	return &sentiment, nil
}

// AppendDisplayedNames 在写入前先裁剪最旧的名字，保证集合大小任何时刻都不超过上限。
// 读取与裁剪之间用 WATCH 保护，冲突时重试。
func (r *redisSessionRepository) AppendDisplayedNames(ctx context.Context, sessionID string, names []string) error {
	names = model.CanonicalNames(names)
	if len(names) == 0 {
		return nil
	}
	capacity := r.cfg.MaxDisplayed
	if len(names) > capacity {
		names = names[len(names)-capacity:]
	}
	key := displayedKey(sessionID)

	txf := func(tx *redis.Tx) error {
		// 从旧到新排列；集合大小受上限约束，整体读出代价很小
		existing, err := tx.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		incoming := make(map[string]struct{}, len(names))
		for _, name := range names {
			incoming[name] = struct{}{}
		}
		// 重复出现的名字只刷新分数，不占用新的容量
		var evictable []string
		for _, name := range existing {
			if _, ok := incoming[name]; !ok {
				evictable = append(evictable, name)
			}
		}
		var evict []interface{}
		if trim := len(evictable) + len(names) - capacity; trim > 0 {
			for _, name := range evictable[:trim] {
				evict = append(evict, name)
			}
		}

		base := r.stamp()
		members := make([]*redis.Z, 0, len(names))
		for i, name := range names {
			members = append(members, &redis.Z{Score: base + float64(i), Member: name})
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(evict) > 0 {
				pipe.ZRem(ctx, key, evict...)
			}
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, r.cfg.TTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.redisClient.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Debugf("[SessionRepository] 已展示名字写入冲突，重试第 %d 次, session: %s", i+1, sessionID)
			continue
		}
		return fmt.Errorf("failed to append displayed names: %w", err)
	}
	return fmt.Errorf("failed to append displayed names: %w", redis.TxFailedErr)
}

// GetDisplayedNames 按最近展示在前的顺序返回已展示的名字。
func (r *redisSessionRepository) GetDisplayedNames(ctx context.Context, sessionID string) ([]string, error) {
	names, err := r.redisClient.ZRevRange(ctx, displayedKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get displayed names: %w", err)
	}
	return names, nil
}

func (r *redisSessionRepository) EnqueueReasonJob(ctx context.Context, sessionID string, names []string) (bool, error) {
	names = model.CanonicalNames(names)
	if len(names) == 0 {
		return false, nil
	}
	cached, err := r.redisClient.HMGet(ctx, reasonKey(sessionID), names...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cached reasons: %w", err)
	}
	pending := make([]string, 0, len(names))
	for i, v := range cached {
		if v == nil {
			pending = append(pending, names[i])
		}
	}
	if len(pending) == 0 {
		log.Debugf("[SessionRepository] 所有名字都已有推荐理由，无需入队, session: %s", sessionID)
		return false, nil
	}

	// 标记必须先于任务写入，否则 worker 可能在标记出现之前就处理完并清除它
	if err := r.redisClient.Set(ctx, reasonPendingKey(sessionID), len(pending), r.cfg.TTL).Err(); err != nil {
		log.Warnf("[SessionRepository] 设置理由待生成标记失败, session: %s, error: %v", sessionID, err)
	}
	if err := r.queue.Push(ctx, tasks.ReasonJob{SessionID: sessionID, Names: pending}); err != nil {
		if delErr := r.redisClient.Del(ctx, reasonPendingKey(sessionID)).Err(); delErr != nil {
			log.Warnf("[SessionRepository] 清除理由待生成标记失败, session: %s, error: %v", sessionID, delErr)
		}
		return false, err
	}
	log.Debugf("[SessionRepository] 理由任务已入队, session: %s, names: %v", sessionID, pending)
	return true, nil
}

// CacheReasons 只写入尚不存在的理由，已有的理由不会被覆盖。空 map 不产生任何写入。
func (r *redisSessionRepository) CacheReasons(ctx context.Context, sessionID string, reasons map[string]string, clearPendingMarker bool) error {
	if len(reasons) == 0 && !clearPendingMarker {
		return nil
	}
	key := reasonKey(sessionID)
	names := make([]string, 0, len(reasons))
	for name := range reasons {
		names = append(names, name)
	}
	sort.Strings(names)

	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range names {
			canonical := model.CanonicalName(name)
			if canonical == "" || reasons[name] == "" {
				continue
			}
			pipe.HSetNX(ctx, key, canonical, reasons[name])
		}
		if len(names) > 0 {
			pipe.Expire(ctx, key, r.cfg.TTL)
		}
		if clearPendingMarker {
			pipe.Del(ctx, reasonPendingKey(sessionID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache reasons: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) GetReasons(ctx context.Context, sessionID string) (map[string]string, error) {
	reasons, err := r.redisClient.HGetAll(ctx, reasonKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get reasons: %w", err)
	}
	return reasons, nil
}

func (r *redisSessionRepository) GetReason(ctx context.Context, sessionID, name string) (string, error) {
	reason, err := r.redisClient.HGet(ctx, reasonKey(sessionID), model.CanonicalName(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get reason: %w", err)
	}
	return reason, nil
}

func (r *redisSessionRepository) HasPendingReasons(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, reasonPendingKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check pending reasons: %w", err)
	}
	return n > 0, nil
}
