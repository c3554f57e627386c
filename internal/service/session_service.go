package service

import (
	"context"
	"fmt"

	"name-smart-go/internal/corpus"
	"name-smart-go/internal/model"
	"name-smart-go/internal/rating"
	"name-smart-go/internal/repository"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/token"
)

// ReasonsView 是会话的推荐理由，Pending 表示后台仍有理由在生成。
type ReasonsView struct {
	Reasons map[string]string `json:"reasons"`
	Pending bool              `json:"pending"`
}

// NameFacts 汇总一个名字的统计、特征、描述以及会话相关信息。
type NameFacts struct {
	Name         string                   `json:"name"`
	Population   model.Population         `json:"population"`
	Frequency    int                      `json:"frequency"`
	Rank         int                      `json:"rank,omitempty"`
	Trend        map[int]int              `json:"trend"`
	Similar      []string                 `json:"similarNames"`
	Origin       string                   `json:"origin,omitempty"`
	ShortMeaning string                   `json:"shortMeaning,omitempty"`
	Description  string                   `json:"description,omitempty"`
	Traits       []rating.TraitPercentile `json:"features,omitempty"`
	Reason       string                   `json:"recommendReason,omitempty"`
	Sentiment    *model.Sentiment         `json:"sentiment,omitempty"`
}

// SessionService 接口定义了会话偏好、反馈和名字详情的操作。
type SessionService interface {
	NewSession() (string, error)
	GetPreferences(ctx context.Context, sessionID string) (map[string]any, error)
	UpdatePreferences(ctx context.Context, sessionID string, flat map[string]string, replace bool) (int, error)
	GetSentiments(ctx context.Context, sessionID string) (map[model.SentimentKind][]model.NamedSentiment, error)
	UpdateSentiments(ctx context.Context, sessionID string, raw map[string]model.Sentiment) error
	GetReasons(ctx context.Context, sessionID string) (*ReasonsView, error)
	NameFacts(ctx context.Context, sessionID, name string, pop model.Population) (*NameFacts, error)
}

type sessionService struct {
	sessionRepo     repository.SessionRepository
	descriptionRepo repository.NameDescriptionRepository
	ratings         RatingModel
	stats           NameStatistics
	similar         SimilarNameIndex
}

// NewSessionService 创建一个新的 SessionService 实例。descriptionRepo 可以为 nil，此时名字详情不含描述。
func NewSessionService(sessionRepo repository.SessionRepository, descriptionRepo repository.NameDescriptionRepository,
	ratings RatingModel, stats NameStatistics, similar SimilarNameIndex) SessionService {
	return &sessionService{
		sessionRepo:     sessionRepo,
		descriptionRepo: descriptionRepo,
		ratings:         ratings,
		stats:           stats,
		similar:         similar,
	}
}

func (s *sessionService) NewSession() (string, error) {
	return token.NewSessionID()
}

func (s *sessionService) GetPreferences(ctx context.Context, sessionID string) (map[string]any, error) {
	prefs, err := s.sessionRepo.GetPreferences(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return prefs.Native(), nil
}

// UpdatePreferences 校验并合并偏好，返回写入的偏好数。空值会被忽略。
func (s *sessionService) UpdatePreferences(ctx context.Context, sessionID string, flat map[string]string, replace bool) (int, error) {
	prefs, err := model.ParsePreferences(flat)
	if err != nil {
		return 0, err
	}
	if len(prefs) == 0 && !replace {
		return 0, nil
	}
	if err := s.sessionRepo.MergePreferences(ctx, sessionID, prefs, replace); err != nil {
		return 0, fmt.Errorf("failed to merge preferences: %w", err)
	}
	log.Infof("[SessionService] 会话 %s 更新了 %d 个偏好, replace: %t", sessionID, len(prefs), replace)
	return len(prefs), nil
}

func (s *sessionService) GetSentiments(ctx context.Context, sessionID string) (map[model.SentimentKind][]model.NamedSentiment, error) {
	sentiments, err := s.sessionRepo.GetSentiments(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	return sentiments.ByKind(), nil
}

func (s *sessionService) UpdateSentiments(ctx context.Context, sessionID string, raw map[string]model.Sentiment) error {
	sentiments, err := model.NormalizeSentiments(raw)
	if err != nil {
		return err
	}
	if len(sentiments) == 0 {
		return nil
	}
	if err := s.sessionRepo.UpdateSentiments(ctx, sessionID, sentiments); err != nil {
		return fmt.Errorf("failed to update sentiments: %w", err)
	}
	return nil
}

func (s *sessionService) GetReasons(ctx context.Context, sessionID string) (*ReasonsView, error) {
	reasons, err := s.sessionRepo.GetReasons(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pending, err := s.sessionRepo.HasPendingReasons(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ReasonsView{Reasons: reasons, Pending: pending}, nil
}

// NameFacts 返回名字详情；pop 为空时按出生统计猜测人群。
func (s *sessionService) NameFacts(ctx context.Context, sessionID, name string, pop model.Population) (*NameFacts, error) {
	name = model.CanonicalName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", model.ErrInvalidName)
	}
	if pop == "" {
		pop = s.stats.GuessPopulation(name)
	}
	freq, rank := s.stats.FrequencyAndRank(name, pop)
	facts := &NameFacts{
		Name:       name,
		Population: pop,
		Frequency:  freq,
		Trend:      s.stats.YearlyTrend(name, pop),
		Similar:    s.similar.Get(name, pop),
		Traits:     s.ratings.TraitScores(pop, name),
	}
	if rank < corpus.UnrankedRank {
		facts.Rank = rank
	}

	if s.descriptionRepo != nil {
		d, err := s.descriptionRepo.FindByName(ctx, pop, name)
		if err != nil {
			log.Warnf("[SessionService] 读取名字 %s 的描述失败: %v", name, err)
		} else if d != nil {
			facts.Origin, facts.ShortMeaning, facts.Description = d.Origin, d.ShortMeaning, d.Description
		}
	}

	reason, err := s.sessionRepo.GetReason(ctx, sessionID, name)
	if err != nil {
		return nil, err
	}
	facts.Reason = reason
	if facts.Sentiment, err = s.sessionRepo.GetSentiment(ctx, sessionID, name); err != nil {
		return nil, err
	}
	return facts, nil
}
