// Package service 实现名字推荐的业务逻辑：候选生成、打分合并、过滤和推荐理由。
package service

import (
	"context"
	"errors"

	"name-smart-go/internal/model"
	"name-smart-go/internal/rating"
)

// ErrMissingPopulation 表示请求和会话偏好中都没有性别。
var ErrMissingPopulation = errors.New("population is required")

// Embedder 把文本转换成向量。
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher 是名字向量相似度服务。
type VectorSearcher interface {
	// Search 在目标人群中查找最接近的 k 个名字，分数越高越相似。
	Search(ctx context.Context, vec []float32, pop model.Population, k int) ([]model.ScoredName, error)
	// EmbeddingOf 返回名字的向量，没有时返回 (nil, nil)。
	EmbeddingOf(ctx context.Context, pop model.Population, name string) ([]float32, error)
}

// RatingModel 是评分模型的只读视图。
type RatingModel interface {
	Suggest(pop model.Population, choices map[string]string, limit int) []model.ScoredName
	SuggestReasons(pop model.Population, names []string, choices map[string]string) map[string]string
	TraitScores(pop model.Population, name string) []rating.TraitPercentile
}

// NameStatistics 是出生统计的只读视图。
type NameStatistics interface {
	PopularNames(pop model.Population, count int) []string
	GuessPopulation(name string) model.Population
	FrequencyAndRank(name string, pop model.Population) (int, int)
	YearlyTrend(name string, pop model.Population) map[int]int
}

// SimilarNameIndex 返回预先计算的相似名字。
type SimilarNameIndex interface {
	Get(name string, pop model.Population) []string
}
