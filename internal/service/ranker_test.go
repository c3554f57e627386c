package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"name-smart-go/internal/model"
)

func TestNormalize(t *testing.T) {
	assert.Empty(t, Normalize(nil))

	got := Normalize(map[string]float64{"A": 2, "B": 4, "C": 3})
	assert.Equal(t, map[string]float64{"A": 0, "B": 1, "C": 0.5}, got)

	for _, v := range Normalize(map[string]float64{"A": -3.2, "B": 7.1, "C": 0.4, "D": 2}) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalizeEqualValues(t *testing.T) {
	got := Normalize(map[string]float64{"A": 0.3, "B": 0.3})
	assert.Equal(t, map[string]float64{"A": 1, "B": 1}, got)

	assert.Equal(t, map[string]float64{"Solo": 1}, Normalize(map[string]float64{"Solo": 42}))
}

func TestRankSumsSourcesAndBreaksTiesByName(t *testing.T) {
	got := Rank(Proposals{
		Option:     map[string]float64{"Arthur": 4, "Henry": 2},
		Text:       map[string]float64{},
		Sibling:    map[string]float64{"Henry": 0.9},
		Popularity: map[string]float64{"Liam": 1, "Noah": 0.5, "Arthur": 0},
	})
	// Henry: 0 + 1, Arthur: 1 + 0, Liam: 1；三者同分按名字排序
	names := make([]string, len(got))
	for i, sn := range got {
		names[i] = sn.Name
	}
	assert.Equal(t, []string{"Arthur", "Henry", "Liam", "Noah"}, names)
	assert.Equal(t, model.ScoredName{Name: "Noah", Score: 0.5}, got[3])
	for _, sn := range got[:3] {
		assert.Equal(t, 1.0, sn.Score)
	}
}
