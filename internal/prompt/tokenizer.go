package prompt

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"name-smart-go/pkg/log"
)

const fallbackEncoding = "cl100k_base"

var loaderOnce sync.Once

// Tokenizer 按补全模型的编码计算 token 数，BPE 文件内置在二进制中，不需要联网下载。
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer 返回 model 对应编码的 Tokenizer，未知模型使用 cl100k_base。
func NewTokenizer(model string) (*Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warnf("[Tokenizer] 模型 %q 没有对应的编码，使用 %s", model, fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("加载 %s 编码失败: %w", fallbackEncoding, err)
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Count 返回 text 的 token 数。
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}
