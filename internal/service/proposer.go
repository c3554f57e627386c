package service

import (
	"context"
	"sort"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/internal/prompt"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/metrics"
)

// 候选来源
const (
	SourceOption     = "option"
	SourceText       = "text"
	SourceSibling    = "sibling"
	SourcePopularity = "popularity"
)

// Proposals 保存四个来源各自的候选及原始分数，尚未归一化。没有候选的来源为空 map。
type Proposals struct {
	Option     map[string]float64
	Text       map[string]float64
	Sibling    map[string]float64
	Popularity map[string]float64
}

// Proposer 从特征选项、文本偏好、兄弟姐妹名字和热度四个来源收集候选名字。
// 向量相关的调用失败时对应来源降级为空，不影响其他来源。
type Proposer struct {
	embedder Embedder
	vectors  VectorSearcher
	ratings  RatingModel
	stats    NameStatistics
	cfg      config.RecommendConfig
}

func NewProposer(embedder Embedder, vectors VectorSearcher, ratings RatingModel, stats NameStatistics, cfg config.RecommendConfig) *Proposer {
	return &Proposer{embedder: embedder, vectors: vectors, ratings: ratings, stats: stats, cfg: cfg}
}

// Propose 为目标人群收集候选，count 为最终需要的名字数。
func (p *Proposer) Propose(ctx context.Context, pop model.Population, prefs model.PreferenceSet, sentiments model.SentimentSet, count int) Proposals {
	fanout := count * p.cfg.SourceFanout
	return Proposals{
		Option:     p.fromOptions(pop, prefs, fanout),
		Text:       p.fromText(ctx, pop, prefs, sentiments, fanout),
		Sibling:    p.fromSiblings(ctx, pop, prefs.Siblings(), count),
		Popularity: p.fromPopularity(pop, fanout),
	}
}

func (p *Proposer) fromOptions(pop model.Population, prefs model.PreferenceSet, limit int) map[string]float64 {
	out := make(map[string]float64)
	choices := prefs.TraitChoices()
	if len(choices) == 0 {
		return out
	}
	for _, sn := range p.ratings.Suggest(pop, choices, limit) {
		out[sn.Name] = sn.Score
	}
	log.Debugf("[Proposer] 特征选项来源得到 %d 个候选", len(out))
	return out
}

// hasTextPreference 表示是否有只能靠语言理解处理的偏好。
func hasTextPreference(prefs model.PreferenceSet, sentiments model.SentimentSet) bool {
	return prefs.Other() != "" || sentiments.HasReason()
}

func (p *Proposer) fromText(ctx context.Context, pop model.Population, prefs model.PreferenceSet, sentiments model.SentimentSet, k int) map[string]float64 {
	out := make(map[string]float64)
	if !hasTextPreference(prefs, sentiments) {
		return out
	}
	vec, err := p.embedder.CreateEmbedding(ctx, prompt.SearchText(pop, prefs, sentiments))
	if err != nil {
		p.degrade(SourceText, err)
		return out
	}
	hits, err := p.vectors.Search(ctx, vec, pop, k)
	if err != nil {
		p.degrade(SourceText, err)
		return out
	}
	for _, h := range hits {
		if name := model.CanonicalName(h.Name); name != "" {
			out[name] = h.Score
		}
	}
	log.Debugf("[Proposer] 文本来源得到 %d 个候选", len(out))
	return out
}

// fromSiblings 对每个兄弟姐妹名字，用其所属人群下的向量在目标人群中检索，
// 相似度跨兄弟姐妹累加，只保留前 count 个。
func (p *Proposer) fromSiblings(ctx context.Context, pop model.Population, siblings []string, count int) map[string]float64 {
	out := make(map[string]float64)
	if len(siblings) == 0 {
		return out
	}
	k := count
	if k < p.cfg.SiblingMinQuery {
		k = p.cfg.SiblingMinQuery
	}
	for _, sibling := range siblings {
		siblingPop := p.stats.GuessPopulation(sibling)
		vec, err := p.vectors.EmbeddingOf(ctx, siblingPop, sibling)
		if err != nil {
			p.degrade(SourceSibling, err)
			continue
		}
		if vec == nil {
			log.Debugf("[Proposer] 名字 %s 在 %s 中没有向量，跳过", sibling, siblingPop)
			continue
		}
		hits, err := p.vectors.Search(ctx, vec, pop, k)
		if err != nil {
			p.degrade(SourceSibling, err)
			continue
		}
		for _, h := range hits {
			if name := model.CanonicalName(h.Name); name != "" {
				out[name] += h.Score
			}
		}
	}
	if len(out) <= count {
		return out
	}
	top := sortScores(out)[:count]
	trimmed := make(map[string]float64, count)
	for _, sn := range top {
		trimmed[sn.Name] = sn.Score
	}
	return trimmed
}

// fromPopularity 按热度排名线性衰减打分，第一名为 1。
func (p *Proposer) fromPopularity(pop model.Population, limit int) map[string]float64 {
	names := p.stats.PopularNames(pop, limit)
	out := make(map[string]float64, len(names))
	for rank, name := range names {
		out[name] = 1 - float64(rank)/float64(len(names))
	}
	return out
}

func (p *Proposer) degrade(source string, err error) {
	metrics.CandidateSourceFailures.WithLabelValues(source).Inc()
	log.Warnf("[Proposer] 候选来源 %s 调用失败，降级为空: %v", source, err)
}

// sortScores 按分数从高到低排序，分数相同时按名字升序。
func sortScores(scores map[string]float64) []model.ScoredName {
	out := make([]model.ScoredName, 0, len(scores))
	for name, score := range scores {
		out = append(out, model.ScoredName{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
