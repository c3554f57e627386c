package service

import "name-smart-go/internal/model"

const scaleEpsilon = 1e-8

// Normalize 把分数按 min-max 缩放到 [0,1]；所有分数相同时都为 1。
func Normalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	first := true
	var lo, hi float64
	for _, v := range scores {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := hi - lo
	for name, v := range scores {
		if scale < scaleEpsilon {
			out[name] = 1
		} else {
			out[name] = (v - lo) / scale
		}
	}
	return out
}

// Rank 分别归一化四个来源后按名字求和，按总分降序、名字升序排列。
func Rank(p Proposals) []model.ScoredName {
	total := make(map[string]float64)
	for _, source := range []map[string]float64{p.Option, p.Text, p.Sibling, p.Popularity} {
		for name, v := range Normalize(source) {
			total[name] += v
		}
	}
	return sortScores(total)
}
