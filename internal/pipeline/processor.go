// Package pipeline 定义了后台推荐理由生成的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/internal/prompt"
	"name-smart-go/pkg/llm"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/metrics"
	"name-smart-go/pkg/tasks"
)

// ReasonStore 是处理理由任务所需的会话状态操作。
type ReasonStore interface {
	GetPreferences(ctx context.Context, sessionID string) (model.PreferenceSet, error)
	GetSentiments(ctx context.Context, sessionID string, maxCount int) (model.SentimentSet, error)
	CacheReasons(ctx context.Context, sessionID string, reasons map[string]string, clearPendingMarker bool) error
}

// DescriptionFinder 批量读取名字描述。
type DescriptionFinder interface {
	FindByNames(ctx context.Context, pop model.Population, names []string) (map[string]model.NameDescription, error)
}

// Completer 以 JSON 模式请求文本补全。
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error
}

// Processor 封装了理由生成的所有依赖和逻辑。
type Processor struct {
	store        ReasonStore
	descriptions DescriptionFinder
	completer    Completer
	tokenizer    *prompt.Tokenizer
	groupSize    int
	tokenBudget  int
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(store ReasonStore, descriptions DescriptionFinder, completer Completer, tokenizer *prompt.Tokenizer,
	workerCfg config.WorkerConfig, llmCfg config.LLMConfig) *Processor {
	groupSize := workerCfg.GroupSize
	if groupSize <= 0 {
		groupSize = 3
	}
	return &Processor{
		store:        store,
		descriptions: descriptions,
		completer:    completer,
		tokenizer:    tokenizer,
		groupSize:    groupSize,
		tokenBudget:  llmCfg.PromptTokenBudget,
	}
}

// Process 把名字分组，每组并发请求一次补全，结果写入理由缓存。
// 一组失败只记录日志，不影响其他组。全部结束后清除待生成标记。
func (p *Processor) Process(ctx context.Context, job tasks.ReasonJob) error {
	start := time.Now()
	log.Infof("[Processor] 开始处理理由任务, session: %s, names: %v", job.SessionID, job.Names)

	names := model.CanonicalNames(job.Names)
	if len(names) == 0 {
		return p.store.CacheReasons(ctx, job.SessionID, nil, true)
	}

	prefs, err := p.store.GetPreferences(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("读取会话偏好失败: %w", err)
	}
	pop := prefs.Population()
	if pop == "" {
		log.Warnf("[Processor] 会话 %s 缺少性别信息，跳过理由生成", job.SessionID)
		return p.store.CacheReasons(ctx, job.SessionID, nil, true)
	}
	sentiments, err := p.store.GetSentiments(ctx, job.SessionID, 0)
	if err != nil {
		return fmt.Errorf("读取会话反馈失败: %w", err)
	}
	userContext := prompt.UserContext(prefs, sentiments)

	descriptions := map[string]model.NameDescription{}
	if p.descriptions != nil {
		found, err := p.descriptions.FindByNames(ctx, pop, names)
		if err != nil {
			log.Warnf("[Processor] 读取名字描述失败，不带描述继续: %v", err)
		} else {
			descriptions = found
		}
	}

	// 不使用 errgroup.WithContext，一组失败不取消其他组
	var g errgroup.Group
	for _, group := range chunk(names, p.groupSize) {
		g.Go(func() error {
			p.processGroup(ctx, job.SessionID, group, userContext, descriptions)
			return nil
		})
	}
	_ = g.Wait()

	if err := p.store.CacheReasons(ctx, job.SessionID, nil, true); err != nil {
		return err
	}
	log.Infof("[Processor] 理由任务完成, session: %s, 耗时: %s", job.SessionID, time.Since(start))
	return nil
}

func (p *Processor) processGroup(ctx context.Context, sessionID string, names []string, userContext string, descriptions map[string]model.NameDescription) {
	sections := make([]string, 0, len(names))
	for _, name := range names {
		var d *model.NameDescription
		if v, ok := descriptions[name]; ok {
			d = &v
		}
		sections = append(sections, prompt.NameDescription(name, d))
	}
	text, appended := p.tokenizer.WithinBudget(prompt.ReasonRequest(names, userContext), sections, p.tokenBudget)
	if appended < len(sections) {
		log.Warnf("[Processor] prompt 超出 token 预算，只附带了 %d/%d 个名字描述", appended, len(sections))
	}

	raw := map[string]any{}
	if err := p.completer.CompleteJSON(ctx, "", text, &raw); err != nil {
		status := "request_error"
		if errors.Is(err, llm.ErrMalformedJSON) {
			status = "parse_error"
		}
		metrics.ReasonBatches.WithLabelValues(status).Inc()
		log.Errorf("[Processor] 生成理由失败, session: %s, names: %v, error: %v", sessionID, names, err)
		return
	}

	// 只保留本组内的名字，模型多返回的键一律丢弃
	inGroup := make(map[string]struct{}, len(names))
	for _, name := range names {
		inGroup[name] = struct{}{}
	}
	reasons := make(map[string]string, len(names))
	for name, v := range raw {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		canonical := model.CanonicalName(name)
		if _, ok := inGroup[canonical]; ok {
			reasons[canonical] = s
		}
	}
	if len(reasons) == 0 {
		metrics.ReasonBatches.WithLabelValues("parse_error").Inc()
		log.Warnf("[Processor] 补全结果中没有可用的理由, session: %s, names: %v", sessionID, names)
		return
	}
	if err := p.store.CacheReasons(ctx, sessionID, reasons, false); err != nil {
		metrics.ReasonBatches.WithLabelValues("store_error").Inc()
		log.Errorf("[Processor] 写入理由失败, session: %s, error: %v", sessionID, err)
		return
	}
	metrics.ReasonBatches.WithLabelValues("success").Inc()
}

// Drop 放弃一个会话的理由任务，只清除待生成标记。
func (p *Processor) Drop(ctx context.Context, sessionID string) error {
	return p.store.CacheReasons(ctx, sessionID, nil, true)
}

func chunk(names []string, size int) [][]string {
	var out [][]string
	for len(names) > 0 {
		n := size
		if n > len(names) {
			n = len(names)
		}
		out = append(out, names[:n])
		names = names[n:]
	}
	return out
}
