// Package blob 封装对象存储（上传、公开 URL、预签名 URL、删除）。
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"taskboard/backend/internal/domain"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo 对象元信息
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// PresignedTarget 预签名直传目标
type PresignedTarget struct {
	ObjectKey string    `json:"objectKey"`
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store 对象存储接口
type Store interface {
	// Put 上传对象并返回公开访问 URL
	Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error)
	// PresignPut 签发限时的直传 PUT URL
	PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (*PresignedTarget, error)
	// Stat 查询对象元信息，不存在时返回 ErrObjectNotFound
	Stat(ctx context.Context, objectKey string) (ObjectInfo, error)
	// Delete 删除对象
	Delete(ctx context.Context, objectKey string) error
	// PublicURL 返回对象的公开访问 URL
	PublicURL(objectKey string) string
	// ObjectKeyFromURL 从公开 URL 反解对象键，无法反解时 ok 为 false
	ObjectKeyFromURL(url string) (key string, ok bool)
}

// ObjectKey 生成父实体命名空间下的防冲突对象键
//
// 格式：{parentKind}/{parentID}/{unix纳秒}_{清理后的文件名}
func ObjectKey(kind domain.ParentKind, parentID, fileName string) string {
	return fmt.Sprintf("%s/%s/%d_%s", kind, parentID, time.Now().UnixNano(), SanitizeFileName(fileName))
}

// SanitizeFileName 清理文件名中的路径分隔符与控制字符
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	if strings.Trim(out, "._") == "" {
		return "file"
	}
	return out
}
