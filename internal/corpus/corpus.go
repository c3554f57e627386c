package corpus

import (
	"context"
	"errors"
	"fmt"

	"name-smart-go/internal/config"
	"name-smart-go/pkg/log"
)

// Corpus 汇总了全部只读语料。
type Corpus struct {
	Ratings    Ratings
	Statistics *Statistics
	Similar    *SimilarNames
}

// Load 从 src 读取评分、年度频率和相似名字。相似名字文件缺失时只记录警告。
func Load(ctx context.Context, src Source, cfg config.CorpusConfig, minVotes int) (*Corpus, error) {
	c := &Corpus{}

	rc, err := src.Open(ctx, RatingsFile)
	if err != nil {
		return nil, err
	}
	c.Ratings, err = LoadRatings(rc, minVotes)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	rc, err = src.Open(ctx, YearTrendFile)
	if err != nil {
		return nil, err
	}
	c.Statistics, err = LoadStatistics(rc, cfg.EndYear)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	rc, err = src.Open(ctx, SimilarFile)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warnf("[Corpus] 未找到 %s，不喜欢的名字不会扩散到相似名字", SimilarFile)
		c.Similar = NewSimilarNames()
	case err != nil:
		return nil, err
	default:
		c.Similar, err = LoadSimilarNames(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("加载相似名字失败: %w", err)
		}
	}

	start, end := c.Statistics.Window()
	log.Infof("[Corpus] 语料加载完成，统计窗口 %d-%d", start, end)
	return c, nil
}
