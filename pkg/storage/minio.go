// Package storage 提供了与对象存储服务（MinIO）交互的功能，语料文件可以存放在这里。
package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"name-smart-go/internal/config"
	"name-smart-go/pkg/log"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确认语料所在的存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) error {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("语料存储桶 '%s' 不存在", cfg.BucketName)
	}

	MinioClient = client
	log.Infof("MinIO 客户端初始化成功, bucket: %s", cfg.BucketName)
	return nil
}
