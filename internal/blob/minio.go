package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig MinIO 对象存储配置
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// MinioStore 基于 MinIO（S3 兼容）的对象存储实现
type MinioStore struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// NewMinioStore 创建 MinIO 对象存储，桶不存在时自动创建
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		useSSL: cfg.UseSSL,
	}

	if err := s.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return s, nil
}

// ensureBucket 确保桶存在
func (s *MinioStore) ensureBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// Put 上传对象并返回公开访问 URL
func (s *MinioStore) Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return s.PublicURL(objectKey), nil
}

// PresignPut 签发限时的直传 PUT URL
func (s *MinioStore) PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (*PresignedTarget, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign put: %w", err)
	}

	return &PresignedTarget{
		ObjectKey: objectKey,
		UploadURL: u.String(),
		PublicURL: s.PublicURL(objectKey),
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// Stat 查询对象元信息
func (s *MinioStore) Stat(ctx context.Context, objectKey string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return ObjectInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

// Delete 删除对象
func (s *MinioStore) Delete(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}

// PublicURL 构造对象的公开访问 URL
//
// 开发环境直接拼 MinIO 端点；生产环境可在前面加 CDN。
func (s *MinioStore) PublicURL(objectKey string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	endpoint := strings.TrimPrefix(s.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucket, objectKey)
}

// ObjectKeyFromURL 从公开 URL 反解对象键
func (s *MinioStore) ObjectKeyFromURL(url string) (string, bool) {
	prefix := s.PublicURL("")
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}
