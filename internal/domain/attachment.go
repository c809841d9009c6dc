package domain

import (
	"strings"
	"time"
)

// ParentKind 附件父实体类型
type ParentKind string

const (
	// ParentKindSubmission 附件属于客户提交
	ParentKindSubmission ParentKind = "submission"
	// ParentKindCard 附件属于看板卡片
	ParentKindCard ParentKind = "card"
)

// FileType 附件文件类别，由 MIME 类型前缀推导
type FileType string

const (
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// documentMimeTypes 归类为文档的 MIME 类型（非前缀匹配部分）
var documentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.ms-powerpoint":                                           true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
}

// FileTypeFromMime 按 MIME 前缀推导文件类别
//
// video/* -> video，audio/* -> audio，image/* -> image，
// PDF/Office/文本类 -> document，其余 -> other。
func FileTypeFromMime(mimeType string) FileType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}

	switch {
	case strings.HasPrefix(mt, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mt, "audio/"):
		return FileTypeAudio
	case strings.HasPrefix(mt, "image/"):
		return FileTypeImage
	case documentMimeTypes[mt]:
		return FileTypeDocument
	default:
		return FileTypeOther
	}
}

// TranscriptionStatus 转写状态
type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
	// TranscriptionNone 非音视频附件无转写
	TranscriptionNone TranscriptionStatus = ""
)

// Attachment 附件元数据记录
//
// 附件在创建后不可变：FileURL、FileSize 等字段一旦写入即固定，
// 只有 Transcription / TranscriptionStatus 允许由外部转写服务更新。
type Attachment struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ParentKind   ParentKind `json:"parentKind" gorm:"type:varchar(20);index:idx_attachment_parent;not null"`
	ParentID     string     `json:"parentId" gorm:"type:varchar(36);index:idx_attachment_parent;not null"`
	FileName     string     `json:"fileName" gorm:"type:varchar(255);not null"`
	FileURL      string     `json:"fileUrl" gorm:"type:varchar(1000);not null"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" gorm:"type:varchar(1000)"`
	FileType     FileType   `json:"fileType" gorm:"type:varchar(20);not null"`
	FileSize     int64      `json:"fileSize" gorm:"not null"`
	MimeType     string     `json:"mimeType" gorm:"type:varchar(100)"`

	Transcription       string              `json:"transcription,omitempty" gorm:"type:text"`
	TranscriptionStatus TranscriptionStatus `json:"transcriptionStatus,omitempty" gorm:"type:varchar(20)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NeedsTranscription 音视频附件进入转写流程
func (a *Attachment) NeedsTranscription() bool {
	return a.FileType == FileTypeVideo || a.FileType == FileTypeAudio
}
