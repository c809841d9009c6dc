package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"taskboard/backend/internal/blob"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/pool"
	"taskboard/backend/internal/storage"
	"taskboard/backend/internal/storage/filesystem"
)

var (
	// ErrSessionNotFound 会话不存在或已被 finalize 消费
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrNotSessionOwner 调用者不是会话创建者
	ErrNotSessionOwner = errors.New("session does not belong to caller")
	// ErrFileTooLarge 声明大小超过上限
	ErrFileTooLarge = errors.New("declared file size exceeds limit")
	// ErrInvalidFileSize 声明大小非法
	ErrInvalidFileSize = errors.New("declared file size must be positive")
	// ErrInvalidChunkIndex 分块索引越界
	ErrInvalidChunkIndex = errors.New("chunk index out of range")
	// ErrChunkTooLarge 分块超过配置的分块大小
	ErrChunkTooLarge = errors.New("chunk exceeds configured chunk size")
	// ErrParentNotFound 会话的父实体（提交或卡片）不存在
	ErrParentNotFound = errors.New("parent entity not found")
	// ErrInvalidParentKind 非法的父实体类型
	ErrInvalidParentKind = errors.New("invalid parent kind")
)

// IncompleteUploadError finalize 在分块齐全前被调用
type IncompleteUploadError struct {
	Received int
	Expected int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload incomplete: received %d of %d chunks (%d missing)",
		e.Received, e.Expected, e.Expected-e.Received)
}

// MissingChunkError 拼接时发现分块文件在接收后被意外删除
type MissingChunkError struct {
	Index int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("chunk %d is missing from staging storage", e.Index)
}

// StorageError 底层磁盘或对象存储写入失败
//
// finalize 遇到该错误时会话与分块原样保留，客户端可以直接重试
// finalize 而无需重传分块。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UploadService 分块上传服务
//
// 会话元数据与接收集合存放在 Store，分块字节暂存在文件系统分块仓，
// finalize 把分块按索引顺序拼接后交给对象存储并落附件记录。
// 小文件与大文件走同一条路径：小文件就是只有 1 个分块的会话。
type UploadService struct {
	store   storage.Store
	chunks  *filesystem.ChunkStore
	blobs   blob.Store
	thumbs  *Thumbnailer
	pool    *pool.WorkerPool
	events  EventPublisher
	metrics *monitoring.Metrics
	log     *zap.Logger
	cfg     config.UploadConfig

	// 同一会话的并发 finalize 合并为一次执行
	finalizeGroup singleflight.Group
}

// NewUploadService 创建上传服务
func NewUploadService(store storage.Store, chunks *filesystem.ChunkStore, blobs blob.Store, cfg config.UploadConfig, log *zap.Logger) *UploadService {
	return &UploadService{
		store:  store,
		chunks: chunks,
		blobs:  blobs,
		thumbs: NewThumbnailer(cfg.FFmpegPath, log),
		log:    log,
		cfg:    cfg,
	}
}

// SetWorkerPool 设置后台任务协程池（过期清扫、转写派发）
func (s *UploadService) SetWorkerPool(p *pool.WorkerPool) { s.pool = p }

// SetEventPublisher 设置实时事件发布器
func (s *UploadService) SetEventPublisher(events EventPublisher) { s.events = events }

// SetMetrics 设置监控指标
func (s *UploadService) SetMetrics(m *monitoring.Metrics) { s.metrics = m }

// InitUploadInput 创建上传会话输入
type InitUploadInput struct {
	FileName   string            `json:"fileName" binding:"required,max=255"`
	FileSize   int64             `json:"fileSize" binding:"required"`
	MimeType   string            `json:"mimeType" binding:"required,max=100"`
	ParentKind domain.ParentKind `json:"parentKind" binding:"required"`
	ParentID   string            `json:"parentId" binding:"required"`
}

// SessionStatus 会话状态，供客户端对比本地分块列表断点续传
type SessionStatus struct {
	UploadID       string `json:"uploadId"`
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	ChunkSize      int64  `json:"chunkSize"`
	ExpectedChunks int    `json:"expectedChunks"`
	UploadedChunks []int  `json:"uploadedChunks"`
}

// ChunkReceipt 分块接收回执
type ChunkReceipt struct {
	Accepted       bool `json:"accepted"`
	UploadedChunks int  `json:"uploadedChunks"`
}

// Init 创建上传会话
//
// 会话绑定创建者（ownerID）；父实体必须存在且调用者有权向其追加
// 附件。返回的 chunkSize 由服务端决定，客户端必须按此大小切分。
func (s *UploadService) Init(ownerID string, input InitUploadInput) (*domain.UploadSession, error) {
	if input.FileSize <= 0 {
		return nil, ErrInvalidFileSize
	}
	if input.FileSize > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	if err := s.checkParent(ownerID, input.ParentKind, input.ParentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.UploadSession{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		ParentKind:   input.ParentKind,
		ParentID:     input.ParentID,
		FileName:     input.FileName,
		DeclaredSize: input.FileSize,
		MimeType:     input.MimeType,
		ChunkSize:    s.cfg.ChunkSize,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
	}

	if err := s.store.CreateUploadSession(session); err != nil {
		return nil, fmt.Errorf("failed to create upload session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.UploadSessionsOpened.Inc()
	}
	s.log.Info("upload session created",
		zap.String("session_id", session.ID),
		zap.String("owner_id", ownerID),
		zap.String("file_name", input.FileName),
		zap.Int64("file_size", input.FileSize),
		zap.Int("expected_chunks", session.ExpectedChunks()),
	)

	return session, nil
}

// checkParent 校验父实体存在且归属正确
//
// 提交的附件只能由提交所属客户（或管理员）追加；卡片附件只允许管理员追加，
// 归属校验由 handler 层的角色中间件完成，这里只验证实体存在。
func (s *UploadService) checkParent(ownerID string, kind domain.ParentKind, parentID string) error {
	switch kind {
	case domain.ParentKindSubmission:
		sub, err := s.store.GetSubmission(parentID)
		if err != nil {
			return ErrParentNotFound
		}
		if sub.ClientID != ownerID {
			// 管理员也可以向任意提交补充附件
			owner, err := s.store.GetUserByID(ownerID)
			if err != nil || !owner.IsAdmin() {
				return ErrNotSessionOwner
			}
		}
		return nil
	case domain.ParentKindCard:
		if _, err := s.store.GetCard(parentID); err != nil {
			return ErrParentNotFound
		}
		return nil
	default:
		return ErrInvalidParentKind
	}
}

// loadOwnedSession 加载会话并校验归属
func (s *UploadService) loadOwnedSession(ownerID, sessionID string) (*domain.UploadSession, error) {
	session, err := s.store.GetUploadSession(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// Status 查询会话状态
//
// 客户端在页面刷新后用返回的 UploadedChunks 与本地分块列表做差集，
// 只补传缺失的分块。
func (s *UploadService) Status(ownerID, sessionID string) (*SessionStatus, error) {
	session, err := s.loadOwnedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	received, err := s.store.ListUploadChunks(sessionID)
	if err != nil {
		// 会话在两次读取之间被 finalize/清扫消费
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &SessionStatus{
		UploadID:       session.ID,
		FileName:       session.FileName,
		FileSize:       session.DeclaredSize,
		ChunkSize:      session.ChunkSize,
		ExpectedChunks: session.ExpectedChunks(),
		UploadedChunks: received,
	}, nil
}

// PutChunk 接收一个编号分块
//
// 幂等：重复上传同一索引覆盖字节且只计数一次。分块可以乱序、并发
// 到达；接收集合的更新由 Store 原子完成。
func (s *UploadService) PutChunk(ownerID, sessionID string, index int, r io.Reader) (*ChunkReceipt, error) {
	session, err := s.loadOwnedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= session.ExpectedChunks() {
		return nil, ErrInvalidChunkIndex
	}

	// 多读一个字节以检测超限，末块允许小于分块大小
	limited := io.LimitReader(r, session.ChunkSize+1)
	n, err := s.chunks.SaveChunk(sessionID, index, limited)
	if err != nil {
		return nil, &StorageError{Op: "chunk write", Err: err}
	}
	if n > session.ChunkSize {
		_ = s.chunks.DeleteChunk(sessionID, index)
		return nil, ErrChunkTooLarge
	}

	count, err := s.store.AddUploadChunk(sessionID, index, n)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			// 会话在写盘与登记之间被 finalize/清扫删除
			_ = s.chunks.DeleteSession(sessionID)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UploadChunksReceived.Inc()
		s.metrics.UploadBytesReceived.Add(float64(n))
	}

	return &ChunkReceipt{Accepted: true, UploadedChunks: count}, nil
}

// Finalize 完成上传：拼接分块、生成缩略图、提交对象存储、落附件记录
//
// 步骤与保证：
//  1. 分块不齐全时返回 IncompleteUploadError，无任何副作用；
//  2. 拼接严格按索引顺序，逐块复查存在性，缺块返回 MissingChunkError；
//  3. 视频缩略图失败不致命，结果是"无缩略图"而不是上传失败；
//  4. 对象存储或附件落库失败时会话与分块原样保留，客户端可重试
//     finalize 而无需重传；
//  5. 只有全部副作用成功后才删除会话与分块，重复 finalize 返回
//     ErrSessionNotFound，绝不落重复附件。同一会话的并发 finalize
//     通过 singleflight 合并为一次提交，双方共享同一附件结果。
func (s *UploadService) Finalize(ctx context.Context, ownerID, sessionID string) (*domain.Attachment, error) {
	// 归属校验对每个调用者独立做，不进合并组
	if _, err := s.loadOwnedSession(ownerID, sessionID); err != nil {
		return nil, err
	}

	v, err, _ := s.finalizeGroup.Do(sessionID, func() (interface{}, error) {
		return s.finalizeOnce(ctx, ownerID, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Attachment), nil
}

func (s *UploadService) finalizeOnce(ctx context.Context, ownerID, sessionID string) (*domain.Attachment, error) {
	session, err := s.loadOwnedSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	expected := session.ExpectedChunks()
	received, err := s.store.ListUploadChunks(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if len(received) < expected {
		if s.metrics != nil {
			s.metrics.UploadFinalizeTotal.WithLabelValues("incomplete").Inc()
		}
		return nil, &IncompleteUploadError{Received: len(received), Expected: expected}
	}

	// 拼接到暂存文件，避免把大文件整个读进内存
	artifact, err := os.CreateTemp(s.cfg.StoragePath, "assemble_*")
	if err != nil {
		return nil, &StorageError{Op: "assemble", Err: err}
	}
	artifactPath := artifact.Name()
	defer os.Remove(artifactPath)

	total, err := s.chunks.Assemble(artifact, sessionID, expected)
	if err != nil {
		artifact.Close()
		if errors.Is(err, filesystem.ErrChunkNotFound) {
			if idx, ok := firstMissingChunk(s.chunks, sessionID, expected); ok {
				return nil, &MissingChunkError{Index: idx}
			}
			return nil, &MissingChunkError{Index: 0}
		}
		return nil, &StorageError{Op: "assemble", Err: err}
	}
	if err := artifact.Close(); err != nil {
		return nil, &StorageError{Op: "assemble", Err: err}
	}

	fileType := domain.FileTypeFromMime(session.MimeType)

	// 视频附件先提帧做缩略图；失败不阻断上传
	var thumbnailURL string
	if fileType == domain.FileTypeVideo {
		thumbnailURL = s.generateThumbnail(ctx, session, artifactPath)
	}

	objectKey := blob.ObjectKey(session.ParentKind, session.ParentID, session.FileName)
	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, &StorageError{Op: "artifact read", Err: err}
	}
	fileURL, err := s.blobs.Put(ctx, objectKey, f, total, session.MimeType)
	f.Close()
	if err != nil {
		// 会话保留，客户端可重试 finalize
		if s.metrics != nil {
			s.metrics.UploadFinalizeTotal.WithLabelValues("storage_error").Inc()
		}
		return nil, &StorageError{Op: "blob upload", Err: err}
	}

	now := time.Now().UTC()
	attachment := &domain.Attachment{
		ID:           uuid.New().String(),
		ParentKind:   session.ParentKind,
		ParentID:     session.ParentID,
		FileName:     session.FileName,
		FileURL:      fileURL,
		ThumbnailURL: thumbnailURL,
		FileType:     fileType,
		FileSize:     total,
		MimeType:     session.MimeType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if attachment.NeedsTranscription() {
		attachment.TranscriptionStatus = domain.TranscriptionPending
	}

	if err := s.store.CreateAttachment(attachment); err != nil {
		if s.metrics != nil {
			s.metrics.UploadFinalizeTotal.WithLabelValues("storage_error").Inc()
		}
		return nil, &StorageError{Op: "attachment record", Err: err}
	}

	// 所有副作用已提交，回收会话与分块
	if err := s.store.DeleteUploadSession(sessionID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		s.log.Warn("failed to delete upload session after finalize",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.chunks.DeleteSession(sessionID); err != nil {
		s.log.Warn("failed to delete chunk staging after finalize",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.UploadFinalizeTotal.WithLabelValues("success").Inc()
		s.metrics.UploadFileSize.WithLabelValues(string(fileType)).Observe(float64(total))
	}
	s.log.Info("upload finalized",
		zap.String("session_id", sessionID),
		zap.String("attachment_id", attachment.ID),
		zap.Int64("file_size", total),
		zap.String("file_type", string(fileType)),
	)

	s.dispatchPostFinalize(attachment)

	return attachment, nil
}

// generateThumbnail 生成视频缩略图并上传，失败返回空串
func (s *UploadService) generateThumbnail(ctx context.Context, session *domain.UploadSession, artifactPath string) string {
	thumbPath, err := s.thumbs.Generate(ctx, artifactPath)
	if err != nil {
		s.log.Warn("thumbnail generation failed, continuing without thumbnail",
			zap.String("session_id", session.ID), zap.Error(err))
		return ""
	}
	defer os.Remove(thumbPath)

	tf, err := os.Open(thumbPath)
	if err != nil {
		s.log.Warn("thumbnail open failed", zap.Error(err))
		return ""
	}
	defer tf.Close()

	info, err := tf.Stat()
	if err != nil {
		return ""
	}

	thumbKey := blob.ObjectKey(session.ParentKind, session.ParentID, "thumb_"+session.FileName+".jpg")
	url, err := s.blobs.Put(ctx, thumbKey, tf, info.Size(), "image/jpeg")
	if err != nil {
		s.log.Warn("thumbnail upload failed, continuing without thumbnail",
			zap.String("session_id", session.ID), zap.Error(err))
		return ""
	}
	return url
}

// dispatchPostFinalize 广播附件事件并派发转写任务
func (s *UploadService) dispatchPostFinalize(attachment *domain.Attachment) {
	if s.events != nil {
		s.events.Publish(Event{Type: EventAttachmentCreated, Payload: attachment})
	}

	if attachment.NeedsTranscription() && s.pool != nil {
		att := *attachment
		s.pool.Submit(func() {
			// 转写由外部服务完成，这里只记录派发；外部服务回调
			// PATCH /v1/attachments/:id/transcription 更新状态
			s.log.Info("transcription job dispatched",
				zap.String("attachment_id", att.ID),
				zap.String("file_type", string(att.FileType)),
			)
		})
	}
}

// RequestDirectTarget 签发直传目标
//
// 客户端拿到预签名 URL 后带外完成 PUT，再调用附件服务的 Link
// 登记附件；登记前服务端会 Stat 对象确认存在且大小一致。
func (s *UploadService) RequestDirectTarget(ctx context.Context, fileName, mimeType string) (*blob.PresignedTarget, error) {
	objectKey := fmt.Sprintf("direct/%s_%s", uuid.New().String(), blob.SanitizeFileName(fileName))

	target, err := s.blobs.PresignPut(ctx, objectKey, s.cfg.PresignTTL)
	if err != nil {
		return nil, &StorageError{Op: "presign", Err: err}
	}

	if s.metrics != nil {
		s.metrics.DirectTargetsIssued.Inc()
	}
	return target, nil
}

// SweepExpired 回收过期会话及其分块，返回回收数量
//
// 由 main 中的定时任务驱动；单个会话的清理通过协程池并发执行，
// 同时兜底清掉会话记录已丢失的孤儿分块目录。
func (s *UploadService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredUploadSessions(time.Now().UTC())
	if err != nil {
		return 0, err
	}

	for _, session := range expired {
		sessionID := session.ID
		task := func() {
			if err := s.store.DeleteUploadSession(sessionID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
				s.log.Error("failed to delete expired session", zap.String("session_id", sessionID), zap.Error(err))
				return
			}
			if err := s.chunks.DeleteSession(sessionID); err != nil {
				s.log.Error("failed to delete expired session chunks", zap.String("session_id", sessionID), zap.Error(err))
			}
			s.log.Info("expired upload session reclaimed", zap.String("session_id", sessionID))
		}
		if s.pool != nil {
			s.pool.Submit(task)
		} else {
			task()
		}
	}

	// 孤儿目录：会话记录已丢（如进程崩溃）但分块还在磁盘上
	if _, err := s.chunks.CleanupStale(time.Now().Add(-2 * s.cfg.SessionTTL)); err != nil {
		s.log.Warn("stale chunk cleanup failed", zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.UploadSessionsSwept.Add(float64(len(expired)))
	}
	return len(expired), nil
}

// firstMissingChunk 找到第一个缺失的分块索引
func firstMissingChunk(cs *filesystem.ChunkStore, sessionID string, count int) (int, bool) {
	for i := 0; i < count; i++ {
		if !cs.HasChunk(sessionID, i) {
			return i, true
		}
	}
	return 0, false
}
