package corpus

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
)

// 统计窗口为截止年份在内的最近 3 年
const windowYears = 3

// UnrankedRank 是窗口内没有出现过的名字的排名。
const UnrankedRank = 10000

// YearlyTrend 是某个名字在某个人群中的逐年出生数。
type YearlyTrend struct {
	Name       string
	Population model.Population
	Counts     map[int]int
}

type yearTrendRecord struct {
	Name   string             `json:"name"`
	Gender string             `json:"gender"`
	Trend  map[string]flexInt `json:"trend"`
}

type nameKey struct {
	name string
	pop  model.Population
}

type rankedFreq struct {
	freq int
	rank int // 从 1 开始
}

// Statistics 保存逐年频率以及最近 3 年汇总后的频率与排名。
type Statistics struct {
	startYear int
	endYear   int
	trend     map[nameKey]map[int]int
	freq      map[model.Population]map[string]rankedFreq
	ordered   map[model.Population][]string
}

// LoadStatistics 读取 gzip 压缩的逐年频率文件。
func LoadStatistics(r io.Reader, endYear int) (*Statistics, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("解压年度频率文件失败: %w", err)
	}
	defer gz.Close()

	var records []yearTrendRecord
	if err := json.NewDecoder(gz).Decode(&records); err != nil {
		return nil, fmt.Errorf("解析年度频率文件失败: %w", err)
	}

	trends := make([]YearlyTrend, 0, len(records))
	for _, rec := range records {
		pop, err := model.ParsePopulation(rec.Gender)
		if err != nil || pop == "" {
			log.Debugf("[Corpus] 跳过性别无法识别的频率记录: %s/%s", rec.Name, rec.Gender)
			continue
		}
		counts := make(map[int]int, len(rec.Trend))
		for y, c := range rec.Trend {
			year, err := strconv.Atoi(y)
			if err != nil {
				continue
			}
			counts[year] = int(c)
		}
		trends = append(trends, YearlyTrend{Name: rec.Name, Population: pop, Counts: counts})
	}
	log.Infof("[Corpus] 加载年度频率记录 %d 条", len(trends))
	return NewStatistics(trends, endYear), nil
}

// NewStatistics 由逐年记录构建统计信息。
func NewStatistics(trends []YearlyTrend, endYear int) *Statistics {
	s := &Statistics{
		startYear: endYear - windowYears + 1,
		endYear:   endYear,
		trend:     make(map[nameKey]map[int]int, len(trends)),
		freq:      make(map[model.Population]map[string]rankedFreq),
		ordered:   make(map[model.Population][]string),
	}

	sums := make(map[model.Population]map[string]int)
	for _, pop := range model.Populations {
		sums[pop] = make(map[string]int)
	}
	for _, t := range trends {
		name := model.CanonicalName(t.Name)
		if name == "" || !t.Population.Valid() {
			continue
		}
		k := nameKey{name: name, pop: t.Population}
		if s.trend[k] == nil {
			s.trend[k] = make(map[int]int, len(t.Counts))
		}
		for year, c := range t.Counts {
			s.trend[k][year] += c
			if year >= s.startYear && year <= s.endYear {
				sums[t.Population][name] += c
			}
		}
	}

	for _, pop := range model.Populations {
		names := make([]string, 0, len(sums[pop]))
		for name, f := range sums[pop] {
			if f > 0 {
				names = append(names, name)
			}
		}
		sort.Slice(names, func(i, j int) bool {
			fi, fj := sums[pop][names[i]], sums[pop][names[j]]
			if fi != fj {
				return fi > fj
			}
			return names[i] < names[j]
		})
		ranks := make(map[string]rankedFreq, len(names))
		for i, name := range names {
			ranks[name] = rankedFreq{freq: sums[pop][name], rank: i + 1}
		}
		s.freq[pop] = ranks
		s.ordered[pop] = names
	}
	return s
}

// Window 返回统计窗口（含首尾年份）。
func (s *Statistics) Window() (start, end int) {
	return s.startYear, s.endYear
}

// Total 返回人群在窗口内出现过的名字数量。
func (s *Statistics) Total(pop model.Population) int {
	return len(s.ordered[pop])
}

// PopularNames 返回窗口内最常见的前 count 个名字。
func (s *Statistics) PopularNames(pop model.Population, count int) []string {
	names := s.ordered[pop]
	if count > len(names) {
		count = len(names)
	}
	if count <= 0 {
		return nil
	}
	out := make([]string, count)
	copy(out, names[:count])
	return out
}

// GuessPopulation 按窗口内频率的多数猜测名字所属人群，相等时为 girl。
func (s *Statistics) GuessPopulation(name string) model.Population {
	name = model.CanonicalName(name)
	if s.freq[model.Girl][name].freq >= s.freq[model.Boy][name].freq {
		return model.Girl
	}
	return model.Boy
}

// FrequencyAndRank 返回窗口内频率和排名；pop 为空时先猜测人群。未出现的名字排名为 UnrankedRank。
func (s *Statistics) FrequencyAndRank(name string, pop model.Population) (int, int) {
	name = model.CanonicalName(name)
	if pop == "" {
		pop = s.GuessPopulation(name)
	}
	rf, ok := s.freq[pop][name]
	if !ok {
		return 0, UnrankedRank
	}
	return rf.freq, rf.rank
}

// YearlyTrend 返回逐年出生数；pop 为空时先猜测人群。
func (s *Statistics) YearlyTrend(name string, pop model.Population) map[int]int {
	name = model.CanonicalName(name)
	if pop == "" {
		pop = s.GuessPopulation(name)
	}
	src := s.trend[nameKey{name: name, pop: pop}]
	out := make(map[int]int, len(src))
	for y, c := range src {
		out[y] = c
	}
	return out
}
