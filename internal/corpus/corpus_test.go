package corpus

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"name-smart-go/internal/config"
	"name-smart-go/internal/model"
)

const trendJSON = `[
	{"name": "liam", "gender": "M", "trend": {"2019": "900", "2020": "100", "2021": "100", "2022": "100"}},
	{"name": "Noah", "gender": "M", "trend": {"2020": 50, "2021": "60", "2022": "70"}},
	{"name": "Avery", "gender": "M", "trend": {"2022": "5"}},
	{"name": "Avery", "gender": "F", "trend": {"2022": "5"}},
	{"name": "Emma", "gender": "F", "trend": {"2021": "400"}},
	{"name": "Old", "gender": "F", "trend": {"1950": "400"}}
]`

func gzipped(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf
}

func TestStatistics(t *testing.T) {
	stats, err := LoadStatistics(gzipped(t, trendJSON), 2022)
	require.NoError(t, err)

	start, end := stats.Window()
	assert.Equal(t, 2020, start)
	assert.Equal(t, 2022, end)

	assert.Equal(t, []string{"Liam", "Noah", "Avery"}, stats.PopularNames(model.Boy, 10))
	assert.Equal(t, []string{"Liam"}, stats.PopularNames(model.Boy, 1))
	assert.Equal(t, 2, stats.Total(model.Girl))

	freq, rank := stats.FrequencyAndRank("liam", model.Boy)
	assert.Equal(t, 300, freq)
	assert.Equal(t, 1, rank)

	// 窗口之外的年份不计入
	freq, rank = stats.FrequencyAndRank("Old", model.Girl)
	assert.Equal(t, 0, freq)
	assert.Equal(t, UnrankedRank, rank)

	// 人群各自独立排名
	_, rank = stats.FrequencyAndRank("Emma", model.Girl)
	assert.Equal(t, 1, rank)
	_, rank = stats.FrequencyAndRank("Avery", model.Girl)
	assert.Equal(t, 2, rank)

	assert.Equal(t, model.Girl, stats.GuessPopulation("Avery"))
	assert.Equal(t, model.Boy, stats.GuessPopulation("Noah"))
	assert.Equal(t, model.Girl, stats.GuessPopulation("Nobody"))

	trend := stats.YearlyTrend("Liam", "")
	assert.Equal(t, 900, trend[2019])
}

func TestLoadRatingsDropsLowVotes(t *testing.T) {
	input := `[
		{"name": "Liam", "gender": "boy", "votes": "875", "rating": [
			{"A Good Name": "69%", "A Bad Name": "31%"}, {"Masculine": "92%", "Feminine": "8%"},
			{"Classic": "46%", "Modern": "54%"}, {"Mature": "36%", "Youthful": "64%"},
			{"Formal": "41%", "Informal": "59%"}, {"Upper Class": "43%", "Common": "57%"},
			{"Urban": "40%", "Natural": "60%"}, {"Wholesome": "66%", "Devious": "34%"},
			{"Strong": "67%", "Delicate": "33%"}, {"Refined": "62%", "Rough": "38%"},
			{"Strange": "52%", "Boring": "48%"}, {"Simple": "75%", "Complex": "25%"},
			{"Serious": "53%", "Comedic": "47%"}, {"Nerdy": "53%", "Unintellectual": "47%"}]},
		{"name": "Rare", "gender": "boy", "votes": "3", "rating": []},
		{"name": "Broken", "gender": "girl", "votes": 100, "rating": [{"Classic": "40%"}]}
	]`
	ratings, err := LoadRatings(strings.NewReader(input), 20)
	require.NoError(t, err)

	require.Contains(t, ratings[model.Boy], "Liam")
	assert.NotContains(t, ratings[model.Boy], "Rare")
	assert.Empty(t, ratings[model.Girl])

	scores := ratings[model.Boy]["Liam"]
	require.Len(t, scores, len(model.Traits))
	assert.InDelta(t, 0.69, scores[0], 1e-9)
	assert.InDelta(t, 0.46, scores[2], 1e-9)
	assert.InDelta(t, 0.53, scores[13], 1e-9)
}

func TestSimilarNamesFallback(t *testing.T) {
	input := `[
		{"name": "pascal", "similar_names": ["paschal", "pasquale"]},
		{"name": "Avery", "gender": "girl", "similar_names": ["Ava"]},
		{"name": "Avery", "gender": "boy", "similar_names": ["Avery-Jo", "aiden"]}
	]`
	sim, err := LoadSimilarNames(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Paschal", "Pasquale"}, sim.Get("Pascal", model.Boy))
	assert.Equal(t, []string{"Averyjo", "Aiden"}, sim.Get("avery", model.Boy))
	assert.Equal(t, []string{"Ava"}, sim.Get("Avery", ""))
	assert.Nil(t, sim.Get("Unknown", model.Girl))
}

func TestReadEmbeddings(t *testing.T) {
	input := "{\"name\":\"liam\",\"population\":\"m\",\"vector\":[0.1,0.2]}\n\n" +
		"{\"name\":\"Emma\",\"population\":\"girl\",\"vector\":[0.3,0.4]}\n"
	var got []NameEmbedding
	err := ReadEmbeddings(strings.NewReader(input), func(e NameEmbedding) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Liam", got[0].Name)
	assert.Equal(t, model.Boy, got[0].Population)
	assert.Equal(t, []float32{0.3, 0.4}, got[1].Vector)

	err = ReadEmbeddings(strings.NewReader(`{"name":"X","population":"cat","vector":[]}`), func(NameEmbedding) error { return nil })
	assert.Error(t, err)
}

func TestLoadFromDirWithoutSimilarNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RatingsFile), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, YearTrendFile), gzipped(t, trendJSON).Bytes(), 0o644))

	c, err := Load(context.Background(), DirSource{Dir: dir}, config.CorpusConfig{EndYear: 2022}, 20)
	require.NoError(t, err)
	assert.NotNil(t, c.Similar)
	assert.Nil(t, c.Similar.Get("Pascal", model.Boy))
	assert.Equal(t, 3, c.Statistics.Total(model.Boy))

	_, err = DirSource{Dir: dir}.Open(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}
