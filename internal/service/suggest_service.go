package service

import (
	"context"
	"fmt"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/internal/repository"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/metrics"
)

// SuggestRequest 是一次推荐请求。Population 为空时使用会话偏好中的性别。
type SuggestRequest struct {
	SessionID       string
	Population      model.Population
	Count           int
	FilterDisplayed bool
}

// Suggestion 是推荐结果中的一个名字。
type Suggestion struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// SuggestService 接口定义了名字推荐操作。
type SuggestService interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
}

type suggestService struct {
	sessionRepo repository.SessionRepository
	proposer    *Proposer
	filter      *Filter
	reasons     *ReasonGenerator
	cfg         config.RecommendConfig
}

// NewSuggestService 创建一个新的 SuggestService 实例。
func NewSuggestService(sessionRepo repository.SessionRepository, proposer *Proposer, filter *Filter, reasons *ReasonGenerator, cfg config.RecommendConfig) SuggestService {
	return &suggestService{
		sessionRepo: sessionRepo,
		proposer:    proposer,
		filter:      filter,
		reasons:     reasons,
		cfg:         cfg,
	}
}

func (s *suggestService) clampCount(count int) int {
	if count <= 0 {
		count = s.cfg.DefaultCount
	}
	if s.cfg.MaxCount > 0 && count > s.cfg.MaxCount {
		count = s.cfg.MaxCount
	}
	return count
}

// Suggest 依次执行候选生成、打分合并和过滤，写入理由缓存和已展示名字，并提交理由生成任务。
func (s *suggestService) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	prefs, err := s.sessionRepo.GetPreferences(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	sentiments, err := s.sessionRepo.GetSentiments(ctx, req.SessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiments: %w", err)
	}

	pop := req.Population
	if pop == "" {
		pop = prefs.Population()
	}
	if pop == "" {
		return nil, ErrMissingPopulation
	}
	count := s.clampCount(req.Count)
	log.Infof("[SuggestService] 开始推荐, session: %s, population: %s, count: %d, 偏好数: %d, 反馈数: %d",
		req.SessionID, pop, count, len(prefs), len(sentiments))

	proposals := s.proposer.Propose(ctx, pop, prefs, sentiments, count)
	ranked := Rank(proposals)
	names := make([]string, 0, len(ranked))
	scores := make(map[string]float64, len(ranked))
	for _, sn := range ranked {
		names = append(names, sn.Name)
		scores[sn.Name] = sn.Score
	}

	params := FilterParams{
		Population:      pop,
		Preferences:     prefs,
		Sentiments:      sentiments,
		FilterDisplayed: req.FilterDisplayed,
	}
	if req.FilterDisplayed {
		if params.Displayed, err = s.sessionRepo.GetDisplayedNames(ctx, req.SessionID); err != nil {
			return nil, fmt.Errorf("failed to load displayed names: %w", err)
		}
	}
	final := s.filter.Apply(ctx, names, params)
	if len(final) > count {
		final = final[:count]
	}

	statistical := s.reasons.Generate(pop, prefs, proposals, final)
	if err := s.sessionRepo.CacheReasons(ctx, req.SessionID, statistical, false); err != nil {
		return nil, fmt.Errorf("failed to cache reasons: %w", err)
	}
	if err := s.sessionRepo.AppendDisplayedNames(ctx, req.SessionID, final); err != nil {
		return nil, fmt.Errorf("failed to record displayed names: %w", err)
	}
	if _, err := s.sessionRepo.EnqueueReasonJob(ctx, req.SessionID, final); err != nil {
		log.Errorf("[SuggestService] 提交理由生成任务失败, session: %s, error: %v", req.SessionID, err)
	}

	// 缓存中已有的理由优先于本次生成的
	cached, err := s.sessionRepo.GetReasons(ctx, req.SessionID)
	if err != nil {
		log.Warnf("[SuggestService] 读取理由缓存失败，使用本次生成的理由: %v", err)
		cached = statistical
	}

	out := make([]Suggestion, 0, len(final))
	for _, name := range final {
		out = append(out, Suggestion{Name: name, Score: scores[name], Reason: cached[name]})
	}
	metrics.Suggestions.Inc()
	log.Infof("[SuggestService] 推荐完成, session: %s, 返回 %d 个名字", req.SessionID, len(out))
	return out, nil
}
