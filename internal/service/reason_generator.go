package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"name-smart-go/internal/model"
)

// ReasonGenerator 根据候选来源同步生成统计类的推荐理由，LLM 生成的理由由后台 worker 补充。
type ReasonGenerator struct {
	ratings RatingModel
	stats   NameStatistics
}

func NewReasonGenerator(ratings RatingModel, stats NameStatistics) *ReasonGenerator {
	return &ReasonGenerator{ratings: ratings, stats: stats}
}

// Generate 为最终名单中的名字生成理由：先是评分理由，再追加兄弟姐妹和热度理由。
func (g *ReasonGenerator) Generate(pop model.Population, prefs model.PreferenceSet, proposals Proposals, final []string) map[string]string {
	fromOptions := intersect(final, proposals.Option)
	reasons := g.ratings.SuggestReasons(pop, fromOptions, prefs.TraitChoices())

	siblings := prefs.Siblings()
	for _, name := range intersect(final, proposals.Sibling) {
		reason := fmt.Sprintf("we recommend this name because it complements the sibling's names (%s).", strings.Join(siblings, ", "))
		appendReason(reasons, name, "Also", reason)
	}

	for _, name := range intersect(final, proposals.Popularity) {
		_, rank := g.stats.FrequencyAndRank(name, pop)
		reason := fmt.Sprintf("we recommend this name because it is very popular recently (ranked #%d among all names in last 3 years)", rank)
		appendReason(reasons, name, "Further", reason)
	}
	return reasons
}

func appendReason(reasons map[string]string, name, connective, reason string) {
	if existing, ok := reasons[name]; ok {
		reasons[name] = fmt.Sprintf("%s %s, %s", existing, connective, reason)
		return
	}
	reasons[name] = upperFirst(reason)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// intersect 按 names 的顺序返回出现在 source 中的名字。
func intersect(names []string, source map[string]float64) []string {
	var out []string
	for _, name := range names {
		if _, ok := source[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
