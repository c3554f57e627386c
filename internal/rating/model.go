// Package rating 基于投票语料的特征得分分布，给名字打 z-score、算百分位，
// 并按用户选择的特征挑选候选名字。
package rating

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"name-smart-go/internal/config"
	"name-smart-go/internal/corpus"
	"name-smart-go/internal/model"
)

// Popularity 提供按近期热度排序的名字。
type Popularity interface {
	PopularNames(pop model.Population, count int) []string
}

// Model 在进程启动后只读，可以被并发使用。
type Model struct {
	ratings corpus.Ratings
	popular Popularity
	cfg     config.RatingConfig
}

func NewModel(ratings corpus.Ratings, popular Popularity, cfg config.RatingConfig) *Model {
	return &Model{ratings: ratings, popular: popular, cfg: cfg}
}

// TraitPercentile 是名字在某个特征上偏向的一极及其百分位。
type TraitPercentile struct {
	Trait      string  `json:"trait"`
	Pole       string  `json:"pole"`
	Score      float64 `json:"score"`
	ZScore     float64 `json:"zScore"`
	Percentile float64 `json:"percentile"`
}

// Rated 表示该名字在该人群下是否有评分。
func (m *Model) Rated(pop model.Population, name string) bool {
	_, ok := m.ratings[pop][model.CanonicalName(name)]
	return ok
}

func (m *Model) zscore(pop model.Population, scores []float64, idx int, second bool) float64 {
	t := model.Traits[idx]
	d, ok := distributions[pop][t.First]
	if !ok || d.std == 0 {
		return 0
	}
	z := (scores[idx] - d.mean) / d.std
	if second {
		z = -z
	}
	return z
}

func traitIndex(key string) int {
	for i, t := range model.Traits {
		if t.Key == key {
			return i
		}
	}
	return -1
}

// ZScore 计算名字在所选一极上的 z-score。未评分的名字、未知特征或未知选项都返回 0。
func (m *Model) ZScore(pop model.Population, name, traitKey, pole string) float64 {
	scores, ok := m.ratings[pop][model.CanonicalName(name)]
	idx := traitIndex(traitKey)
	if !ok || idx < 0 {
		return 0
	}
	_, second, ok := model.Traits[idx].Pole(pole)
	if !ok {
		return 0
	}
	return m.zscore(pop, scores, idx, second)
}

// Percentile 返回 |z| 的单侧正态尾概率 p，以及 z>0 时 top 为 true（位于所选一极的前 p）。
// 名字未评分时 ok 为 false。
func (m *Model) Percentile(pop model.Population, name, traitKey, pole string) (p float64, top bool, ok bool) {
	if !m.Rated(pop, name) || traitIndex(traitKey) < 0 {
		return 0, false, false
	}
	z := m.ZScore(pop, name, traitKey, pole)
	return tail(z), z > 0, true
}

func tail(z float64) float64 {
	return 0.5 * math.Erfc(math.Abs(z)/math.Sqrt2)
}

func (m *Model) clamp(z float64) float64 {
	return math.Max(-m.cfg.Clamp, math.Min(m.cfg.Clamp, z))
}

type choice struct {
	idx    int
	pole   string
	second bool
}

// 按特征顺序解析选择，忽略未知的特征或选项
func parseChoices(choices map[string]string) []choice {
	var out []choice
	for i, t := range model.Traits {
		raw, ok := choices[t.Key]
		if !ok {
			continue
		}
		pole, second, ok := t.Pole(raw)
		if !ok {
			continue
		}
		out = append(out, choice{idx: i, pole: pole, second: second})
	}
	return out
}

// Suggest 在热门名字（前 PopularPool 个）与有评分名字的交集中，
// 按每个特征截断到 ±Clamp 后的 z-score 之和打分，只保留总分大于 MinScore 的名字。
// 结果按分数降序，同分按名字升序，最多 limit 个。
func (m *Model) Suggest(pop model.Population, choices map[string]string, limit int) []model.ScoredName {
	parsed := parseChoices(choices)
	if len(parsed) == 0 || limit <= 0 {
		return nil
	}
	rated := m.ratings[pop]

	var out []model.ScoredName
	for _, name := range m.popular.PopularNames(pop, m.cfg.PopularPool) {
		scores, ok := rated[name]
		if !ok {
			continue
		}
		var sum float64
		for _, c := range parsed {
			sum += m.clamp(m.zscore(pop, scores, c.idx, c.second))
		}
		if sum > m.cfg.MinScore {
			out = append(out, model.ScoredName{Name: name, Score: sum})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SuggestReasons 为每个名字生成基于评分的推荐理由。只输出正面的子句：
// 所选一极的百分位低于 ReasonCeiling 且位于该极一侧。没有符合条件特征的名字不会出现在结果中。
func (m *Model) SuggestReasons(pop model.Population, names []string, choices map[string]string) map[string]string {
	parsed := parseChoices(choices)
	out := make(map[string]string)
	if len(parsed) == 0 {
		return out
	}
	for _, raw := range names {
		name := model.CanonicalName(raw)
		scores, ok := m.ratings[pop][name]
		if !ok {
			continue
		}
		var clauses []string
		for _, c := range parsed {
			z := m.zscore(pop, scores, c.idx, c.second)
			p := tail(z)
			if z <= 0 || p >= m.cfg.ReasonCeiling {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("the top %d%% %s names", topPercent(p), c.pole))
		}
		if len(clauses) == 0 {
			continue
		}
		out[name] = "We recommend this name because it is one of " + joinClauses(clauses) + "."
	}
	return out
}

// TraitScores 返回名字在每个特征上偏向的一极及百分位，未评分时返回 nil。
func (m *Model) TraitScores(pop model.Population, name string) []TraitPercentile {
	scores, ok := m.ratings[pop][model.CanonicalName(name)]
	if !ok {
		return nil
	}
	out := make([]TraitPercentile, 0, len(model.Traits))
	for i, t := range model.Traits {
		z := m.zscore(pop, scores, i, false)
		pole := t.First
		if z < 0 {
			pole = t.Second
		}
		out = append(out, TraitPercentile{
			Trait:      t.Key,
			Pole:       pole,
			Score:      scores[i],
			ZScore:     z,
			Percentile: tail(z),
		})
	}
	return out
}

// topPercent 把尾概率向上取整为百分数，至少为 1。
func topPercent(p float64) int {
	pct := int(math.Ceil(p * 100))
	if pct < 1 {
		pct = 1
	}
	return pct
}

func joinClauses(clauses []string) string {
	switch len(clauses) {
	case 1:
		return clauses[0]
	case 2:
		return clauses[0] + " and " + clauses[1]
	}
	return strings.Join(clauses[:len(clauses)-1], ", ") + ", and " + clauses[len(clauses)-1]
}
