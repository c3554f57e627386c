package model

import (
	"fmt"
	"sort"
	"strings"
)

type SentimentKind string

const (
	Liked    SentimentKind = "liked"
	Disliked SentimentKind = "disliked"
	Saved    SentimentKind = "saved"
)

func ParseSentimentKind(raw string) (SentimentKind, error) {
	switch k := SentimentKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case Liked, Disliked, Saved:
		return k, nil
	}
	return "", fmt.Errorf("%w: expect liked, disliked or saved, got %q", ErrInvalidSentiment, raw)
}

// Sentiment 是用户对某个名字的反馈，JSON 形式同时用于 Redis 存储和 HTTP 传输。
type Sentiment struct {
	Kind   SentimentKind `json:"sentiment"`
	Reason string        `json:"reason,omitempty"`
}

// SentimentSet 以规范化名字为键。
type SentimentSet map[string]Sentiment

// NamedSentiment 是按类别分组后的单条反馈。
type NamedSentiment struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// NormalizeSentiments 规范化名字并校验反馈类型。
func NormalizeSentiments(raw map[string]Sentiment) (SentimentSet, error) {
	out := make(SentimentSet, len(raw))
	for name, s := range raw {
		canonical := CanonicalName(name)
		if canonical == "" {
			return nil, fmt.Errorf("%w: empty name %q", ErrInvalidSentiment, name)
		}
		kind, err := ParseSentimentKind(string(s.Kind))
		if err != nil {
			return nil, err
		}
		out[canonical] = Sentiment{Kind: kind, Reason: strings.TrimSpace(s.Reason)}
	}
	return out, nil
}

// Names 返回按字母排序的全部名字。
func (s SentimentSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NamesOf 返回某一类反馈的名字，按字母排序。
func (s SentimentSet) NamesOf(kind SentimentKind) []string {
	var out []string
	for name, v := range s {
		if v.Kind == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HasReason 表示是否至少有一条反馈附带了理由。
func (s SentimentSet) HasReason() bool {
	for _, v := range s {
		if v.Reason != "" {
			return true
		}
	}
	return false
}

// ByKind 把反馈按 liked/disliked/saved 分组，三个键总是存在。
func (s SentimentSet) ByKind() map[SentimentKind][]NamedSentiment {
	out := map[SentimentKind][]NamedSentiment{
		Liked:    {},
		Disliked: {},
		Saved:    {},
	}
	for _, name := range s.Names() {
		v := s[name]
		out[v.Kind] = append(out[v.Kind], NamedSentiment{Name: name, Reason: v.Reason})
	}
	return out
}
