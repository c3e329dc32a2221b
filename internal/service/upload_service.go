package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/pkg/storage"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadSize 是单个附件的大小上限。
const MaxUploadSize = 5 << 20

var allowedUploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ObjectStore 保存上传的附件。
type ObjectStore interface {
	Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (*storage.Object, error)
}

// UploadService 处理附件上传。
type UploadService interface {
	Upload(ctx context.Context, user *model.User, filename, contentType string, size int64, r io.Reader) (*storage.Object, error)
}

type uploadService struct {
	store ObjectStore
	now   func() time.Time
}

// NewUploadService 创建上传服务。store 为 nil 时所有上传返回 KindUnavailable。
func NewUploadService(store ObjectStore) UploadService {
	return &uploadService{store: store, now: time.Now}
}

func (s *uploadService) Upload(ctx context.Context, user *model.User, filename, contentType string, size int64, r io.Reader) (*storage.Object, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	if s.store == nil {
		return nil, newError(KindUnavailable, "File upload is not configured", nil)
	}
	if size > MaxUploadSize {
		return nil, newError(KindBadRequest, "File size should be less than 5MB", nil)
	}
	ext, ok := allowedUploadTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, newError(KindBadRequest, "File type should be JPEG or PNG", nil)
	}

	objectName := fmt.Sprintf("%s/%s/%s-%s%s", user.ID, s.now().UTC().Format("20060102"), safeBase(filename), uuid.NewString()[:8], ext)

	obj, err := s.store.Put(ctx, objectName, contentType, io.LimitReader(r, MaxUploadSize+1), size)
	if err != nil {
		return nil, newError(KindInternal, "Upload failed", err)
	}
	return obj, nil
}

// safeBase 取文件名去掉扩展名的部分，只保留字母、数字、- 和 _。
func safeBase(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, base)
	if base == "" {
		return "file"
	}
	return base
}
