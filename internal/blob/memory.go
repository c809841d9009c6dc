package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore 内存对象存储，用于开发环境与测试
//
// PresignPut 返回的 UploadURL 不是真实可 PUT 的地址，直传路径的
// 端到端验证需要真实的 MinIO；其余语义与 MinioStore 一致。
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore 创建内存对象存储实例
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://bucket"
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
	}
}

// Put 上传对象并返回公开访问 URL
func (s *MemoryStore) Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read object: %w", err)
	}

	s.mu.Lock()
	s.objects[objectKey] = memoryObject{data: buf.Bytes(), contentType: contentType}
	s.mu.Unlock()

	return s.PublicURL(objectKey), nil
}

// PresignPut 签发直传目标（内存实现仅返回占位 URL）
func (s *MemoryStore) PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (*PresignedTarget, error) {
	return &PresignedTarget{
		ObjectKey: objectKey,
		UploadURL: s.baseURL + "/presigned/" + objectKey,
		PublicURL: s.PublicURL(objectKey),
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// Stat 查询对象元信息
func (s *MemoryStore) Stat(ctx context.Context, objectKey string) (ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectKey]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

// Delete 删除对象
func (s *MemoryStore) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, objectKey)
	return nil
}

// PublicURL 返回对象的公开访问 URL
func (s *MemoryStore) PublicURL(objectKey string) string {
	return s.baseURL + "/" + objectKey
}

// ObjectKeyFromURL 从公开 URL 反解对象键
func (s *MemoryStore) ObjectKeyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return "", false
	}
	return url[len(prefix):], true
}

// Object 返回对象内容，供测试断言上传结果
func (s *MemoryStore) Object(objectKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectKey]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, true
}

// PutBytes 直接写入对象，供测试模拟带外直传
func (s *MemoryStore) PutBytes(objectKey string, data []byte, contentType string) string {
	s.mu.Lock()
	s.objects[objectKey] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	s.mu.Unlock()
	return s.PublicURL(objectKey)
}
