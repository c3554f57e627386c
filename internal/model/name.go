// Package model 包含了推荐引擎共享的数据模型定义。
package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrInvalidPopulation = errors.New("invalid population")
	ErrInvalidPreference = errors.New("invalid preference")
	ErrInvalidSentiment  = errors.New("invalid sentiment")
	ErrInvalidName       = errors.New("invalid name")
)

// Population 是所有统计、评分和向量划分所依据的目标人群。
type Population string

const (
	Boy  Population = "boy"
	Girl Population = "girl"
)

// Populations 按固定顺序列出全部人群。
var Populations = []Population{Boy, Girl}

func (p Population) Valid() bool {
	return p == Boy || p == Girl
}

func (p Population) String() string {
	return string(p)
}

// ParsePopulation 解析性别/人群字符串。空串或 "none" 返回空 Population 且不报错。
func ParsePopulation(raw string) (Population, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "none":
		return "", nil
	case "m", "male", "boy", "b":
		return Boy, nil
	case "f", "female", "girl", "g":
		return Girl, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPopulation, raw)
}

// CanonicalName 把名字规范化为唯一的查找键：去空白、只留字母、小写后首字母大写。
func CanonicalName(raw string) string {
	var b strings.Builder
	first := true
	for _, r := range strings.TrimSpace(raw) {
		if !unicode.IsLetter(r) {
			continue
		}
		if first {
			b.WriteRune(unicode.ToUpper(r))
			first = false
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CanonicalNames 规范化一组名字，去掉空值和重复项，保持原有顺序。
func CanonicalNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := CanonicalName(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ScoredName 是带分数的候选名字。
type ScoredName struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
