// Package es 提供了与 Elasticsearch 交互的客户端功能。名字向量索引在这里充当向量相似度服务。
package es

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"name-smart-go/internal/config"
)

// InitES 初始化 Elasticsearch 客户端。请求级超时由调用方的 context 控制，重试次数来自配置。
func InitES(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses:  strings.Split(esCfg.Addresses, ","),
		Username:   esCfg.Username,
		Password:   esCfg.Password,
		MaxRetries: esCfg.MaxRetries,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	return client, nil
}
