// Package storage 提供了与对象存储服务（如 MinIO）交互的功能，用于保存聊天附件。
package storage

import (
	"ai-chatbot-go/internal/config"
	"ai-chatbot-go/pkg/log"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Object 描述一个已上传的对象。
type Object struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// Store 把附件写入 MinIO 存储桶。
type Store struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewStore 初始化 MinIO 客户端并确保指定的存储桶存在。
// 未配置 endpoint 时返回 (nil, nil)，表示附件上传不可用。
func NewStore(ctx context.Context, cfg config.MinIOConfig) (*Store, error) {
	if cfg.Endpoint == "" {
		log.Info("MinIO 未配置，附件上传不可用")
		return nil, nil
	}

	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}
	log.Info("MinIO 客户端初始化成功")

	return &Store{
		client:  client,
		bucket:  cfg.BucketName,
		baseURL: publicBase(cfg),
	}, nil
}

// publicBase 返回对象公开访问地址的前缀，PublicURL 优先。
func publicBase(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint + "/" + cfg.BucketName
}

// objectURL 拼接对象的公开地址，对象名中的每一段都会被转义。
func objectURL(base, objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segments, "/")
}

// Put 上传一个对象。objectName 会被清理为相对路径。
func (s *Store) Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (*Object, error) {
	name := strings.TrimPrefix(path.Clean("/"+objectName), "/")
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("上传对象失败: %w", err)
	}
	return &Object{URL: objectURL(s.baseURL, name), Pathname: name, ContentType: contentType}, nil
}
