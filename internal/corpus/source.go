// Package corpus 加载进程启动时一次性读入、之后只读的静态语料。
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"name-smart-go/pkg/log"
)

const (
	RatingsFile    = "ratings.json"
	YearTrendFile  = "name_year_trend.json.gz"
	SimilarFile    = "similar_names.json"
	EmbeddingsFile = "name_embeddings.jsonl"
)

var ErrNotFound = errors.New("corpus file not found")

// Source 按文件名打开一个语料文件。
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource 从本地目录读取语料。
type DirSource struct {
	Dir string
}

func (s DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("打开语料文件 %s 失败: %w", name, err)
	}
	return f, nil
}

// MinIOSource 从对象存储读取语料，对象名为 Prefix/name。
type MinIOSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

func (s MinIOSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	objectName := path.Join(s.Prefix, name)
	obj, err := s.Client.GetObject(ctx, s.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectName, err)
	}
	// GetObject 是惰性的，用 Stat 确认对象存在
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectName)
		}
		return nil, fmt.Errorf("读取对象 %s 信息失败: %w", objectName, err)
	}
	log.Debugf("[Corpus] 从 MinIO 读取 %s/%s", s.Bucket, objectName)
	return obj, nil
}
