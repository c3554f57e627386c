package corpus

import (
	"encoding/json"
	"fmt"
	"io"

	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
)

type similarRecord struct {
	Name         string   `json:"name"`
	Gender       string   `json:"gender"`
	SimilarNames []string `json:"similar_names"`
}

// SimilarNames 是离线预计算的相似名字邻域，可按人群区分，也可不区分。
type SimilarNames struct {
	m map[nameKey][]string
}

func LoadSimilarNames(r io.Reader) (*SimilarNames, error) {
	var records []similarRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("解析相似名字文件失败: %w", err)
	}
	s := NewSimilarNames()
	for _, rec := range records {
		pop, err := model.ParsePopulation(rec.Gender)
		if err != nil {
			log.Debugf("[Corpus] 跳过性别无法识别的相似名字记录: %s/%s", rec.Name, rec.Gender)
			continue
		}
		s.Add(rec.Name, pop, rec.SimilarNames)
	}
	log.Infof("[Corpus] 加载相似名字记录 %d 条", len(s.m))
	return s, nil
}

func NewSimilarNames() *SimilarNames {
	return &SimilarNames{m: make(map[nameKey][]string)}
}

// Add 登记一个名字的相似名字，pop 为空表示不区分人群。
func (s *SimilarNames) Add(name string, pop model.Population, similar []string) {
	name = model.CanonicalName(name)
	if name == "" {
		return
	}
	s.m[nameKey{name: name, pop: pop}] = model.CanonicalNames(similar)
}

// Get 查找相似名字。指定人群时先查该人群，再退回不区分人群的记录；
// 未指定时依次尝试不区分人群、girl、boy。
func (s *SimilarNames) Get(name string, pop model.Population) []string {
	name = model.CanonicalName(name)
	order := []model.Population{"", model.Girl, model.Boy}
	if pop != "" {
		order = []model.Population{pop, ""}
	}
	for _, p := range order {
		if names := s.m[nameKey{name: name, pop: p}]; len(names) > 0 {
			return names
		}
	}
	return nil
}
