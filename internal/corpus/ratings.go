package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
)

// Ratings 保存每个人群下每个名字的 14 维特征得分，下标与 model.Traits 一致，取值 [0,1]。
type Ratings map[model.Population]map[string][]float64

type ratingRecord struct {
	Name   string              `json:"name"`
	Gender string              `json:"gender"`
	Votes  flexInt             `json:"votes"`
	Rating []map[string]string `json:"rating"`
}

// LoadRatings 读取投票评分文件，票数低于 minVotes 的记录在加载时丢弃。
func LoadRatings(r io.Reader, minVotes int) (Ratings, error) {
	var records []ratingRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("解析评分文件失败: %w", err)
	}

	out := Ratings{model.Boy: {}, model.Girl: {}}
	var lowVotes, malformed int
	for _, rec := range records {
		if int(rec.Votes) < minVotes {
			lowVotes++
			continue
		}
		pop, err := model.ParsePopulation(rec.Gender)
		name := model.CanonicalName(rec.Name)
		if err != nil || pop == "" || name == "" {
			malformed++
			continue
		}
		scores, err := parseScores(rec.Rating)
		if err != nil {
			log.Debugf("[Corpus] 评分记录 %s/%s 无法解析: %v", name, pop, err)
			malformed++
			continue
		}
		out[pop][name] = scores
	}
	log.Infof("[Corpus] 加载评分: boy %d 个, girl %d 个, 票数不足丢弃 %d 个, 格式错误 %d 个",
		len(out[model.Boy]), len(out[model.Girl]), lowVotes, malformed)
	return out, nil
}

func parseScores(rating []map[string]string) ([]float64, error) {
	flat := make(map[string]string, len(rating)*2)
	for _, pair := range rating {
		for k, v := range pair {
			flat[k] = v
		}
	}
	scores := make([]float64, len(model.Traits))
	for i, t := range model.Traits {
		raw, ok := flat[t.First]
		if !ok {
			return nil, fmt.Errorf("缺少特征 %q", t.First)
		}
		v, err := percentToFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("特征 %q: %w", t.First, err)
		}
		scores[i] = v
	}
	return scores, nil
}

func percentToFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, err
	}
	return v / 100, nil
}
