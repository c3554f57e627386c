package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	gobreaker "github.com/sony/gobreaker/v2"

	"name-smart-go/internal/config"
	"name-smart-go/internal/corpus"
	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
)

const seedBatchSize = 500

var errDocNotFound = errors.New("document not found")

// NameVectorStore 保存每个 (人群, 名字) 的向量，提供带人群过滤的 kNN 查询。
// 所有请求经过同一个熔断器；打开状态下直接失败，调用方据此降级。
type NameVectorStore struct {
	client  *elasticsearch.Client
	index   string
	dims    int
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

type nameVectorDoc struct {
	Name       string           `json:"name"`
	Population model.Population `json:"population"`
	Vector     []float32        `json:"vector"`
}

func NewNameVectorStore(client *elasticsearch.Client, cfg config.ElasticsearchConfig) *NameVectorStore {
	settings := gobreaker.Settings{
		Name:        "es-name-vectors",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errDocNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("[NameVectorStore] 熔断器 %s 状态变化: %s -> %s", name, from, to)
		},
	}
	return &NameVectorStore{
		client:  client,
		index:   cfg.IndexName,
		dims:    cfg.Dimensions,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func docID(pop model.Population, name string) string {
	return fmt.Sprintf("%s-%s", pop, name)
}

// do 在超时和熔断保护下执行请求，返回响应体。
func (s *NameVectorStore) do(ctx context.Context, req esapi.Request) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode == http.StatusNotFound {
			return nil, errDocNotFound
		}
		if res.IsError() {
			return nil, fmt.Errorf("elasticsearch returned %s: %s", res.Status(), string(body))
		}
		return body, nil
	})
}

// EnsureIndex 检查索引是否存在，不存在则按配置的向量维度创建。
func (s *NameVectorStore) EnsureIndex(ctx context.Context) error {
	_, err := s.do(ctx, esapi.IndicesExistsRequest{Index: []string{s.index}})
	if err == nil {
		log.Infof("[NameVectorStore] 索引 '%s' 已存在", s.index)
		return nil
	}
	if !errors.Is(err, errDocNotFound) {
		return fmt.Errorf("检查索引是否存在失败: %w", err)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"name": { "type": "keyword" },
				"population": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, s.dims)
	if _, err := s.do(ctx, esapi.IndicesCreateRequest{Index: s.index, Body: strings.NewReader(mapping)}); err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", s.index, err)
	}
	log.Infof("[NameVectorStore] 索引 '%s' 创建成功", s.index)
	return nil
}

// Search 在目标人群中查找与 vec 最接近的 k 个名字，按相似度从高到低返回。
// 使用 cosine 时分数为 (1+cos)/2。
func (s *NameVectorStore) Search(ctx context.Context, vec []float32, pop model.Population, k int) ([]model.ScoredName, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}
	numCandidates := k * 10
	if numCandidates < 100 {
		numCandidates = 100
	}
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vec,
			"k":              k,
			"num_candidates": numCandidates,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"population": pop},
			},
		},
		"size":    k,
		"_source": []string{"name"},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode knn query: %w", err)
	}

	body, err := s.do(ctx, esapi.SearchRequest{Index: []string{s.index}, Body: &buf})
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Name string `json:"name"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode knn response: %w", err)
	}
	out := make([]model.ScoredName, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, model.ScoredName{Name: h.Source.Name, Score: h.Score})
	}
	return out, nil
}

// EmbeddingOf 返回名字在某人群下的向量，没有时返回 (nil, nil)。
func (s *NameVectorStore) EmbeddingOf(ctx context.Context, pop model.Population, name string) ([]float32, error) {
	name = model.CanonicalName(name)
	body, err := s.do(ctx, esapi.GetRequest{Index: s.index, DocumentID: docID(pop, name)})
	if errors.Is(err, errDocNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get name vector: %w", err)
	}
	var resp struct {
		Found  bool          `json:"found"`
		Source nameVectorDoc `json:"_source"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode name vector: %w", err)
	}
	if !resp.Found {
		return nil, nil
	}
	return resp.Source.Vector, nil
}

// Count 返回索引中的文档数。
func (s *NameVectorStore) Count(ctx context.Context) (int, error) {
	body, err := s.do(ctx, esapi.CountRequest{Index: []string{s.index}})
	if err != nil {
		return 0, fmt.Errorf("failed to count name vectors: %w", err)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return resp.Count, nil
}

// BulkIndex 批量写入名字向量，文档 ID 为 "<人群>-<名字>"，重复写入会覆盖。
func (s *NameVectorStore) BulkIndex(ctx context.Context, docs []corpus.NameEmbedding) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": docID(d.Population, d.Name)}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(nameVectorDoc{Name: d.Name, Population: d.Population, Vector: d.Vector}); err != nil {
			return err
		}
	}

	body, err := s.do(ctx, esapi.BulkRequest{Index: s.index, Body: &buf})
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}
	var resp struct {
		Errors bool `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if resp.Errors {
		return errors.New("bulk index finished with item errors")
	}
	return nil
}

// Seed 在索引为空时从语料中的名字向量文件导入，返回导入的条数。
func (s *NameVectorStore) Seed(ctx context.Context, src corpus.Source) (int, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Infof("[NameVectorStore] 索引中已有 %d 个名字向量，跳过导入", count)
		return 0, nil
	}

	rc, err := src.Open(ctx, corpus.EmbeddingsFile)
	if errors.Is(err, corpus.ErrNotFound) {
		log.Warnf("[NameVectorStore] 未找到 %s，名字向量索引为空", corpus.EmbeddingsFile)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	total := 0
	batch := make([]corpus.NameEmbedding, 0, seedBatchSize)
	flush := func() error {
		// 导入是一次性的大批量写入，不受单次查询超时约束
		if err := s.BulkIndex(context.WithoutCancel(ctx), batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}
	err = corpus.ReadEmbeddings(rc, func(e corpus.NameEmbedding) error {
		if len(e.Vector) != s.dims {
			return fmt.Errorf("名字 %s 的向量维度为 %d，期望 %d", e.Name, len(e.Vector), s.dims)
		}
		batch = append(batch, e)
		if len(batch) >= seedBatchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return total, fmt.Errorf("导入名字向量失败: %w", err)
	}
	log.Infof("[NameVectorStore] 已导入 %d 个名字向量", total)
	return total, nil
}
