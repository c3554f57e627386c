package es

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"name-smart-go/internal/config"
	"name-smart-go/internal/corpus"
	"name-smart-go/internal/model"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	handle   func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handle(w, r, string(body))
}

func (f *fakeES) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body string), mutate func(*config.ElasticsearchConfig)) (*NameVectorStore, *fakeES) {
	t.Helper()
	fake := &fakeES{bodies: map[string]string{}, handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 0})
	require.NoError(t, err)

	cfg := config.Default().Elasticsearch
	cfg.Dimensions = 2
	if mutate != nil {
		mutate(&cfg)
	}
	return NewNameVectorStore(client, cfg), fake
}

func TestSearchFiltersByPopulation(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_score":0.98,"_source":{"name":"Liam"}},
			{"_score":0.91,"_source":{"name":"Noah"}}]}}`)
	}, nil)

	got, err := store.Search(context.Background(), []float32{0.1, 0.2}, model.Boy, 5)
	require.NoError(t, err)
	assert.Equal(t, []model.ScoredName{{Name: "Liam", Score: 0.98}, {Name: "Noah", Score: 0.91}}, got)

	var query struct {
		Knn struct {
			K             int `json:"k"`
			NumCandidates int `json:"num_candidates"`
			Filter        struct {
				Term map[string]string `json:"term"`
			} `json:"filter"`
		} `json:"knn"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.bodies["POST /name_vectors/_search"]), &query))
	assert.Equal(t, 5, query.Knn.K)
	assert.Equal(t, 100, query.Knn.NumCandidates)
	assert.Equal(t, "boy", query.Knn.Filter.Term["population"])

	got, err = store.Search(context.Background(), nil, model.Boy, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, fake.count("POST /name_vectors/_search"))
}

func TestEmbeddingOf(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if strings.HasSuffix(r.URL.Path, "/girl-Ada") {
			_, _ = io.WriteString(w, `{"found":true,"_source":{"name":"Ada","population":"girl","vector":[0.5,0.25]}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"found":false}`)
	}, nil)

	vec, err := store.EmbeddingOf(context.Background(), model.Girl, " ada ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)

	vec, err = store.EmbeddingOf(context.Background(), model.Boy, "Ada")
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	}, func(c *config.ElasticsearchConfig) {
		c.BreakerFailures = 2
		c.BreakerTimeout = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.Search(ctx, []float32{1, 0}, model.Boy, 3)
		require.Error(t, err)
	}
	_, err := store.Search(ctx, []float32{1, 0}, model.Boy, 3)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, fake.count("POST /name_vectors/_search"))
}

func TestMissingDocumentsDoNotTripBreaker(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusNotFound)
	}, func(c *config.ElasticsearchConfig) { c.BreakerFailures = 1 })

	for i := 0; i < 3; i++ {
		vec, err := store.EmbeddingOf(context.Background(), model.Boy, "Zed")
		require.NoError(t, err)
		assert.Nil(t, vec)
	}
	assert.Equal(t, 3, fake.count("GET /name_vectors/_doc/boy-Zed"))
}

func TestSeedImportsWhenIndexEmpty(t *testing.T) {
	var indexed []string
	var mu sync.Mutex
	store, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/_count"):
			_, _ = io.WriteString(w, `{"count":0}`)
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			mu.Lock()
			sc := bufio.NewScanner(strings.NewReader(body))
			for sc.Scan() {
				var meta struct {
					Index struct {
						ID string `json:"_id"`
					} `json:"index"`
				}
				if json.Unmarshal(sc.Bytes(), &meta) == nil && meta.Index.ID != "" {
					indexed = append(indexed, meta.Index.ID)
				}
			}
			mu.Unlock()
			_, _ = io.WriteString(w, `{"errors":false,"items":[]}`)
		}
	}, nil)

	dir := t.TempDir()
	lines := `{"name":"liam","population":"m","vector":[0.1,0.2]}
{"name":"Ada","population":"girl","vector":[0.3,0.4]}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, corpus.EmbeddingsFile), []byte(lines), 0o644))

	n, err := store.Seed(context.Background(), corpus.DirSource{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"boy-Liam", "girl-Ada"}, indexed)
	assert.Equal(t, 1, fake.count("POST /name_vectors/_bulk"))
}

func TestSeedRejectsWrongDimensions(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		_, _ = io.WriteString(w, `{"count":0}`)
	}, nil)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, corpus.EmbeddingsFile),
		[]byte(`{"name":"Liam","population":"boy","vector":[0.1,0.2,0.3]}`+"\n"), 0o644))

	_, err := store.Seed(context.Background(), corpus.DirSource{Dir: dir})
	assert.Error(t, err)
}

func TestSeedSkipsPopulatedIndex(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		_, _ = io.WriteString(w, `{"count":42}`)
	}, nil)

	n, err := store.Seed(context.Background(), corpus.DirSource{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fake.count("POST /name_vectors/_bulk"))
}
