package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskboard/backend/internal/blob"
	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"

	"github.com/google/uuid"
	"time"
)

var (
	// ErrAttachmentNotFound 附件不存在
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrObjectNotUploaded 直传登记时对象存储里找不到对象
	ErrObjectNotUploaded = errors.New("object was not uploaded to storage")
	// ErrObjectSizeMismatch 直传对象实际大小与声明不一致
	ErrObjectSizeMismatch = errors.New("uploaded object size does not match declared size")
	// ErrInvalidTranscriptionStatus 非法的转写状态
	ErrInvalidTranscriptionStatus = errors.New("invalid transcription status")
)

// AttachmentService 附件登记与查询服务
//
// 附件记录创建后除转写字段外不可变；转写字段只能通过
// UpdateTranscription 由外部转写服务回调更新。
type AttachmentService struct {
	store  storage.Store
	blobs  blob.Store
	events EventPublisher
	log    *zap.Logger
}

// NewAttachmentService 创建附件服务
func NewAttachmentService(store storage.Store, blobs blob.Store, log *zap.Logger) *AttachmentService {
	return &AttachmentService{store: store, blobs: blobs, log: log}
}

// SetEventPublisher 设置实时事件发布器
func (s *AttachmentService) SetEventPublisher(events EventPublisher) { s.events = events }

// Get 查询单个附件
func (s *AttachmentService) Get(id string) (*domain.Attachment, error) {
	att, err := s.store.GetAttachment(id)
	if err != nil {
		if errors.Is(err, storage.ErrAttachmentNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return att, nil
}

// ListByParent 列出某个提交或卡片下的全部附件
func (s *AttachmentService) ListByParent(kind domain.ParentKind, parentID string) ([]domain.Attachment, error) {
	if kind != domain.ParentKindSubmission && kind != domain.ParentKindCard {
		return nil, ErrInvalidParentKind
	}
	return s.store.ListAttachmentsByParent(kind, parentID)
}

// LinkInput 直传登记输入
//
// ObjectKey 来自 RequestDirectTarget 的签发结果，服务端据此
// Stat 对象存储做存在性与大小校验，不信任客户端上报的 URL。
type LinkInput struct {
	ParentKind domain.ParentKind `json:"parentKind" binding:"required"`
	ParentID   string            `json:"parentId" binding:"required"`
	ObjectKey  string            `json:"objectKey" binding:"required"`
	FileName   string            `json:"fileName" binding:"required,max=255"`
	FileSize   int64             `json:"fileSize" binding:"required"`
	MimeType   string            `json:"mimeType" binding:"required,max=100"`
}

// Link 登记一个已带外直传完成的对象为附件
//
// 登记前先 Stat 对象：对象不存在返回 ErrObjectNotUploaded，
// 大小与声明不符返回 ErrObjectSizeMismatch，两者都不落记录。
func (s *AttachmentService) Link(ctx context.Context, input LinkInput) (*domain.Attachment, error) {
	if input.ParentKind != domain.ParentKindSubmission && input.ParentKind != domain.ParentKindCard {
		return nil, ErrInvalidParentKind
	}
	if err := s.checkParentExists(input.ParentKind, input.ParentID); err != nil {
		return nil, err
	}

	info, err := s.blobs.Stat(ctx, input.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, ErrObjectNotUploaded
		}
		return nil, &StorageError{Op: "object stat", Err: err}
	}
	if info.Size != input.FileSize {
		return nil, fmt.Errorf("%w: declared %d, stored %d",
			ErrObjectSizeMismatch, input.FileSize, info.Size)
	}

	now := time.Now().UTC()
	attachment := &domain.Attachment{
		ID:         uuid.New().String(),
		ParentKind: input.ParentKind,
		ParentID:   input.ParentID,
		FileName:   input.FileName,
		FileURL:    s.blobs.PublicURL(input.ObjectKey),
		FileType:   domain.FileTypeFromMime(input.MimeType),
		FileSize:   info.Size,
		MimeType:   input.MimeType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if attachment.NeedsTranscription() {
		attachment.TranscriptionStatus = domain.TranscriptionPending
	}

	if err := s.store.CreateAttachment(attachment); err != nil {
		return nil, &StorageError{Op: "attachment record", Err: err}
	}

	s.log.Info("direct upload linked",
		zap.String("attachment_id", attachment.ID),
		zap.String("object_key", input.ObjectKey),
		zap.Int64("file_size", info.Size),
	)

	if s.events != nil {
		s.events.Publish(Event{Type: EventAttachmentCreated, Payload: attachment})
	}

	return attachment, nil
}

// UpdateTranscriptionInput 转写回调输入
type UpdateTranscriptionInput struct {
	Status domain.TranscriptionStatus `json:"status" binding:"required"`
	Text   string                     `json:"text"`
}

// UpdateTranscription 更新附件的转写状态与文本
//
// 附件记录的唯一可变路径，供外部转写服务回调。
func (s *AttachmentService) UpdateTranscription(id string, input UpdateTranscriptionInput) (*domain.Attachment, error) {
	switch input.Status {
	case domain.TranscriptionPending, domain.TranscriptionProcessing,
		domain.TranscriptionCompleted, domain.TranscriptionFailed:
	default:
		return nil, ErrInvalidTranscriptionStatus
	}

	if err := s.store.UpdateAttachmentTranscription(id, input.Status, input.Text); err != nil {
		if errors.Is(err, storage.ErrAttachmentNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}

	att, err := s.store.GetAttachment(id)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish(Event{Type: EventTranscriptionUpdated, Payload: att})
	}
	return att, nil
}

// Delete 删除附件记录并尽力回收对象存储里的文件
func (s *AttachmentService) Delete(ctx context.Context, id string) error {
	att, err := s.store.GetAttachment(id)
	if err != nil {
		if errors.Is(err, storage.ErrAttachmentNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if err := s.store.DeleteAttachment(id); err != nil {
		return err
	}

	// 对象回收失败只记日志，记录删除已是事实
	if key, ok := s.blobs.ObjectKeyFromURL(att.FileURL); ok {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete blob object", zap.String("attachment_id", id), zap.Error(err))
		}
	}
	if att.ThumbnailURL != "" {
		if key, ok := s.blobs.ObjectKeyFromURL(att.ThumbnailURL); ok {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.log.Warn("failed to delete thumbnail object", zap.String("attachment_id", id), zap.Error(err))
			}
		}
	}
	return nil
}

// checkParentExists 确认父实体存在
func (s *AttachmentService) checkParentExists(kind domain.ParentKind, parentID string) error {
	switch kind {
	case domain.ParentKindSubmission:
		if _, err := s.store.GetSubmission(parentID); err != nil {
			return ErrParentNotFound
		}
	case domain.ParentKindCard:
		if _, err := s.store.GetCard(parentID); err != nil {
			return ErrParentNotFound
		}
	}
	return nil
}
