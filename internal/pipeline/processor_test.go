package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
	"name-smart-go/internal/prompt"
	"name-smart-go/pkg/llm"
	"name-smart-go/pkg/tasks"
)

type cacheCall struct {
	reasons map[string]string
	clear   bool
}

type reasonStoreMock struct {
	prefs model.PreferenceSet

	mu    sync.Mutex
	calls []cacheCall
}

func (m *reasonStoreMock) GetPreferences(context.Context, string) (model.PreferenceSet, error) {
	return m.prefs, nil
}

func (m *reasonStoreMock) GetSentiments(context.Context, string, int) (model.SentimentSet, error) {
	return model.SentimentSet{"Ada": {Kind: model.Liked, Reason: "short"}}, nil
}

func (m *reasonStoreMock) CacheReasons(_ context.Context, _ string, reasons map[string]string, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cacheCall{reasons: reasons, clear: clear})
	return nil
}

func (m *reasonStoreMock) merged() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, c := range m.calls {
		for k, v := range c.reasons {
			out[k] = v
		}
	}
	return out
}

type completerMock struct {
	CompleteJSONFunc func(ctx context.Context, systemPrompt, userPrompt string, out any) error

	mu      sync.Mutex
	prompts []string
}

func (m *completerMock) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, userPrompt)
	m.mu.Unlock()
	return m.CompleteJSONFunc(ctx, systemPrompt, userPrompt, out)
}

type descriptionFinderMock map[string]model.NameDescription

func (m descriptionFinderMock) FindByNames(context.Context, model.Population, []string) (map[string]model.NameDescription, error) {
	return m, nil
}

// namesInPrompt 从 "The list of names: a, b." 这一行取出名字
func namesInPrompt(text string) []string {
	const marker = "The list of names: "
	i := strings.Index(text, marker)
	line := text[i+len(marker):]
	line = line[:strings.Index(line, ".\n")]
	return strings.Split(line, ", ")
}

func newTokenizer(t *testing.T) *prompt.Tokenizer {
	t.Helper()
	tok, err := prompt.NewTokenizer(config.Default().LLM.Model)
	require.NoError(t, err)
	return tok
}

func girlPrefs(t *testing.T) model.PreferenceSet {
	t.Helper()
	prefs, err := model.ParsePreferences(map[string]string{"gender": "girl"})
	require.NoError(t, err)
	return prefs
}

func TestProcessorGroupsAndIsolatesFailures(t *testing.T) {
	store := &reasonStoreMock{prefs: girlPrefs(t)}
	completer := &completerMock{
		CompleteJSONFunc: func(_ context.Context, _ string, userPrompt string, out any) error {
			names := namesInPrompt(userPrompt)
			for _, n := range names {
				switch n {
				case "Fail":
					return errors.New("upstream timeout")
				case "Garbled":
					return fmt.Errorf("%w: unexpected end of JSON input", llm.ErrMalformedJSON)
				}
			}
			res := *(out.(*map[string]any))
			for _, n := range names {
				res[strings.ToLower(n)] = "because " + n
			}
			res["ignored"] = 42
			res["name 1"] = "not a name from this group"
			res["Zara"] = "not requested"
			return nil
		},
	}
	descriptions := descriptionFinderMock{"Ada": {Name: "Ada", Origin: "German", ShortMeaning: "noble"}}
	p := NewProcessor(store, descriptions, completer, newTokenizer(t), config.Default().Worker, config.Default().LLM)

	job := tasks.ReasonJob{SessionID: "s", Names: []string{"Ada", "Ivy", "Mia", "Fail", "Zoe", "Eve", "Garbled"}}
	require.NoError(t, p.Process(context.Background(), job))

	assert.Len(t, completer.prompts, 3)
	assert.Equal(t, map[string]string{"Ada": "because Ada", "Ivy": "because Ivy", "Mia": "because Mia"}, store.merged())

	// 最后一次写入只清除待生成标记
	last := store.calls[len(store.calls)-1]
	assert.True(t, last.clear)
	assert.Empty(t, last.reasons)

	for _, text := range completer.prompts {
		assert.Contains(t, text, "The user provided preference:\ngender: girl.")
		if strings.Contains(text, "The list of names: Ada, Ivy, Mia.") {
			assert.Contains(t, text, "origin: German\n short meaning: noble")
		}
	}
}

func TestProcessorSkipsWithoutPopulation(t *testing.T) {
	store := &reasonStoreMock{prefs: model.PreferenceSet{}}
	completer := &completerMock{CompleteJSONFunc: func(context.Context, string, string, any) error {
		t.Fatal("不应请求补全")
		return nil
	}}
	p := NewProcessor(store, nil, completer, newTokenizer(t), config.Default().Worker, config.Default().LLM)

	require.NoError(t, p.Process(context.Background(), tasks.ReasonJob{SessionID: "s", Names: []string{"Ada"}}))
	require.Len(t, store.calls, 1)
	assert.True(t, store.calls[0].clear)
}

func TestProcessorDropClearsMarker(t *testing.T) {
	store := &reasonStoreMock{}
	p := NewProcessor(store, nil, &completerMock{}, newTokenizer(t), config.Default().Worker, config.Default().LLM)

	require.NoError(t, p.Drop(context.Background(), "s"))
	require.Len(t, store.calls, 1)
	assert.True(t, store.calls[0].clear)
	assert.Empty(t, store.calls[0].reasons)
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d"}}, chunk([]string{"a", "b", "c", "d"}, 3))
	assert.Empty(t, chunk(nil, 3))
}
