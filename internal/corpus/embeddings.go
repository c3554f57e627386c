package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"name-smart-go/internal/model"
)

// NameEmbedding 是 name_embeddings.jsonl 中的一行。
type NameEmbedding struct {
	Name       string           `json:"name"`
	Population model.Population `json:"population"`
	Vector     []float32        `json:"vector"`
}

// ReadEmbeddings 逐行读取名字向量并交给 fn 处理，fn 返回错误时停止。
func ReadEmbeddings(r io.Reader, fn func(NameEmbedding) error) error {
	scanner := bufio.NewScanner(r)
	// 单行向量可能很长
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e NameEmbedding
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("第 %d 行名字向量解析失败: %w", line, err)
		}
		pop, err := model.ParsePopulation(string(e.Population))
		if err != nil || pop == "" {
			return fmt.Errorf("第 %d 行人群非法: %q", line, e.Population)
		}
		e.Name = model.CanonicalName(e.Name)
		e.Population = pop
		if err := fn(e); err != nil {
			return err
		}
	}
	return scanner.Err()
}
