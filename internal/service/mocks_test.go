package service

import (
	"context"

	"name-smart-go/internal/model"
	"name-smart-go/internal/rating"
)

type embedderMock struct {
	CreateEmbeddingFunc func(ctx context.Context, text string) ([]float32, error)
	calls               int
}

func (m *embedderMock) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, text)
	}
	return []float32{1}, nil
}

type vectorSearcherMock struct {
	SearchFunc      func(ctx context.Context, vec []float32, pop model.Population, k int) ([]model.ScoredName, error)
	EmbeddingOfFunc func(ctx context.Context, pop model.Population, name string) ([]float32, error)
}

func (m *vectorSearcherMock) Search(ctx context.Context, vec []float32, pop model.Population, k int) ([]model.ScoredName, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vec, pop, k)
	}
	return nil, nil
}

func (m *vectorSearcherMock) EmbeddingOf(ctx context.Context, pop model.Population, name string) ([]float32, error) {
	if m.EmbeddingOfFunc != nil {
		return m.EmbeddingOfFunc(ctx, pop, name)
	}
	return nil, nil
}

type ratingModelMock struct {
	SuggestFunc        func(pop model.Population, choices map[string]string, limit int) []model.ScoredName
	SuggestReasonsFunc func(pop model.Population, names []string, choices map[string]string) map[string]string
	TraitScoresFunc    func(pop model.Population, name string) []rating.TraitPercentile
}

func (m *ratingModelMock) Suggest(pop model.Population, choices map[string]string, limit int) []model.ScoredName {
	if m.SuggestFunc != nil {
		return m.SuggestFunc(pop, choices, limit)
	}
	return nil
}

func (m *ratingModelMock) SuggestReasons(pop model.Population, names []string, choices map[string]string) map[string]string {
	if m.SuggestReasonsFunc != nil {
		return m.SuggestReasonsFunc(pop, names, choices)
	}
	return map[string]string{}
}

func (m *ratingModelMock) TraitScores(pop model.Population, name string) []rating.TraitPercentile {
	if m.TraitScoresFunc != nil {
		return m.TraitScoresFunc(pop, name)
	}
	return nil
}

// statsStub 以 popular 的顺序作为排名，guess 中没有的名字归为 girl。
type statsStub struct {
	popular []string
	guess   map[string]model.Population
}

func (s *statsStub) PopularNames(_ model.Population, count int) []string {
	if count > len(s.popular) {
		count = len(s.popular)
	}
	return append([]string(nil), s.popular[:count]...)
}

func (s *statsStub) GuessPopulation(name string) model.Population {
	if p, ok := s.guess[name]; ok {
		return p
	}
	return model.Girl
}

func (s *statsStub) FrequencyAndRank(name string, _ model.Population) (int, int) {
	for i, n := range s.popular {
		if n == name {
			return 1000 - i, i + 1
		}
	}
	return 0, 10000
}

func (s *statsStub) YearlyTrend(string, model.Population) map[int]int {
	return map[int]int{2022: 10}
}

type similarStub map[string][]string

func (s similarStub) Get(name string, _ model.Population) []string {
	return s[name]
}
