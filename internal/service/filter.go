package service

import (
	"context"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/metrics"
)

// 过滤阶段
const (
	StagePreferences = "preferences"
	StageSentiments  = "sentiments"
	StageDislikes    = "disliked_neighbours"
	StageDisplayed   = "displayed"
)

// FilterParams 是一次过滤所需的会话状态。
type FilterParams struct {
	Population  model.Population
	Preferences model.PreferenceSet
	Sentiments  model.SentimentSet
	// Displayed 仅在 FilterDisplayed 为 true 时使用
	Displayed       []string
	FilterDisplayed bool
}

// Filter 按固定顺序去掉不应推荐的名字。任何阶段都不会因为输入或排除集合为空而出错。
type Filter struct {
	vectors VectorSearcher
	similar SimilarNameIndex
	cfg     config.FilterConfig
}

func NewFilter(vectors VectorSearcher, similar SimilarNameIndex, cfg config.FilterConfig) *Filter {
	return &Filter{vectors: vectors, similar: similar, cfg: cfg}
}

// Apply 返回过滤后的名字，保持输入顺序。
func (f *Filter) Apply(ctx context.Context, names []string, params FilterParams) []string {
	out := removeNames(names, f.preferenceExclusions(ctx, params), StagePreferences)
	out = removeNames(out, toSet(params.Sentiments.Names()), StageSentiments)
	out = removeNames(out, f.dislikeNeighbours(params), StageDislikes)
	if params.FilterDisplayed {
		out = removeNames(out, toSet(params.Displayed), StageDisplayed)
	}
	return out
}

// preferenceExclusions 包括父母、兄弟姐妹、要避免的名字，以及与要避免的名字足够相似的名字。
func (f *Filter) preferenceExclusions(ctx context.Context, params FilterParams) map[string]struct{} {
	prefs := params.Preferences
	excluded := toSet(prefs.ParentNames())
	for _, name := range prefs.Siblings() {
		excluded[model.CanonicalName(name)] = struct{}{}
	}
	avoid := prefs.NamesToAvoid()
	for _, name := range avoid {
		excluded[model.CanonicalName(name)] = struct{}{}
	}
	if f.vectors == nil || f.cfg.AvoidNeighbors <= 0 {
		return excluded
	}
	for _, name := range avoid {
		vec, err := f.vectors.EmbeddingOf(ctx, params.Population, name)
		if err != nil {
			log.Warnf("[Filter] 获取名字 %s 的向量失败，跳过相似名字过滤: %v", name, err)
			continue
		}
		if vec == nil {
			continue
		}
		hits, err := f.vectors.Search(ctx, vec, params.Population, f.cfg.AvoidNeighbors)
		if err != nil {
			log.Warnf("[Filter] 查找名字 %s 的相似名字失败: %v", name, err)
			continue
		}
		for _, h := range hits {
			if h.Score >= f.cfg.AvoidSimilarity {
				excluded[model.CanonicalName(h.Name)] = struct{}{}
			}
		}
	}
	return excluded
}

func (f *Filter) dislikeNeighbours(params FilterParams) map[string]struct{} {
	out := make(map[string]struct{})
	if f.similar == nil {
		return out
	}
	for _, name := range params.Sentiments.NamesOf(model.Disliked) {
		for _, similar := range f.similar.Get(name, params.Population) {
			out[model.CanonicalName(similar)] = struct{}{}
		}
	}
	return out
}

func removeNames(names []string, excluded map[string]struct{}, stage string) []string {
	if len(excluded) == 0 {
		return names
	}
	kept := make([]string, 0, len(names))
	var removed []string
	for _, name := range names {
		if _, ok := excluded[name]; ok {
			removed = append(removed, name)
			continue
		}
		kept = append(kept, name)
	}
	if len(removed) > 0 {
		metrics.FilterRemovedNames.WithLabelValues(stage).Add(float64(len(removed)))
		log.Debugw("[Filter] 名字被移除", "stage", stage, "names", removed)
	}
	return kept
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		if c := model.CanonicalName(name); c != "" {
			out[c] = struct{}{}
		}
	}
	return out
}
