package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/service"
)

// UploadHandler 处理分块上传与直传相关的 HTTP 请求
type UploadHandler struct {
	uploads     *service.UploadService
	attachments *service.AttachmentService
	log         *zap.Logger
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(uploads *service.UploadService, attachments *service.AttachmentService, log *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploads:     uploads,
		attachments: attachments,
		log:         log,
	}
}

type initUploadResponse struct {
	UploadID       string `json:"uploadId"`
	ChunkSize      int64  `json:"chunkSize"`
	ExpectedChunks int    `json:"expectedChunks"`
	ExpiresAt      string `json:"expiresAt"`
}

// InitUpload 创建上传会话
//
// POST /v1/uploads/sessions
func (h *UploadHandler) InitUpload(c *gin.Context) {
	var req service.InitUploadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	session, err := h.uploads.Init(middleware.UserID(c), req)
	if err != nil {
		h.renderUploadError(c, err, MsgUploadInitFailed)
		return
	}

	Created(c, initUploadResponse{
		UploadID:       session.ID,
		ChunkSize:      session.ChunkSize,
		ExpectedChunks: session.ExpectedChunks(),
		ExpiresAt:      session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetUploadStatus 查询会话状态（断点续传）
//
// GET /v1/uploads/sessions/:id/status
func (h *UploadHandler) GetUploadStatus(c *gin.Context) {
	status, err := h.uploads.Status(middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.renderUploadError(c, err, MsgInternalError)
		return
	}
	Success(c, status)
}

// PutChunk 接收一个编号分块
//
// PUT /v1/uploads/sessions/:id/chunks/:index，请求体为分块原始字节。
func (h *UploadHandler) PutChunk(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		BadRequest(c, "分块索引必须为整数")
		return
	}

	receipt, err := h.uploads.PutChunk(middleware.UserID(c), c.Param("id"), index, c.Request.Body)
	if err != nil {
		h.renderUploadError(c, err, MsgChunkUploadFailed)
		return
	}
	Success(c, receipt)
}

// FinalizeUpload 完成上传
//
// POST /v1/uploads/sessions/:id/finalize
func (h *UploadHandler) FinalizeUpload(c *gin.Context) {
	attachment, err := h.uploads.Finalize(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.renderUploadError(c, err, MsgFinalizeFailed)
		return
	}
	Created(c, attachment)
}

type directTargetRequest struct {
	FileName string `json:"fileName" binding:"required,max=255"`
	MimeType string `json:"mimeType" binding:"required,max=100"`
}

// RequestDirectTarget 签发直传预签名地址
//
// POST /v1/uploads/direct-target
func (h *UploadHandler) RequestDirectTarget(c *gin.Context) {
	var req directTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	target, err := h.uploads.RequestDirectTarget(c.Request.Context(), req.FileName, req.MimeType)
	if err != nil {
		h.log.Error("presign failed", zap.Error(err))
		InternalError(c, MsgDirectTargetFailed)
		return
	}
	Created(c, target)
}

// LinkDirectUpload 登记已带外直传完成的对象为附件
//
// POST /v1/attachments
func (h *UploadHandler) LinkDirectUpload(c *gin.Context) {
	var req service.LinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	attachment, err := h.attachments.Link(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrObjectNotUploaded),
			errors.Is(err, service.ErrObjectSizeMismatch),
			errors.Is(err, service.ErrInvalidParentKind):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrParentNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			h.log.Error("direct link failed", zap.Error(err))
			InternalError(c, MsgAttachmentLinkFailed)
		}
		return
	}
	Created(c, attachment)
}

// renderUploadError 把上传服务的错误映射为 HTTP 响应
//
// 错误分级：
//   - 参数类错误 -> 400
//   - 会话不存在 / 已消费 -> 404
//   - 归属不符 -> 403
//   - 分块不齐 -> 400，附带已收/应收计数供客户端补传
//   - 分块丢失 -> 400，附带缺失索引
//   - 存储失败 -> 500，会话保留可重试
func (h *UploadHandler) renderUploadError(c *gin.Context, err error, fallback string) {
	var incomplete *service.IncompleteUploadError
	var missing *service.MissingChunkError
	var storageErr *service.StorageError

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		NotFound(c, GetErrorMessage(service.ErrSessionNotFound))
	case errors.Is(err, service.ErrNotSessionOwner):
		Forbidden(c, GetErrorMessage(service.ErrNotSessionOwner))
	case errors.Is(err, service.ErrParentNotFound):
		NotFound(c, GetErrorMessage(service.ErrParentNotFound))
	case errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrInvalidFileSize),
		errors.Is(err, service.ErrInvalidChunkIndex),
		errors.Is(err, service.ErrInvalidParentKind):
		BadRequest(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrChunkTooLarge):
		PayloadTooLarge(c, GetErrorMessage(service.ErrChunkTooLarge))
	case errors.As(err, &incomplete):
		BadRequestWithData(c, MsgUploadIncomplete, gin.H{
			"received": incomplete.Received,
			"expected": incomplete.Expected,
			"missing":  incomplete.Expected - incomplete.Received,
		})
	case errors.As(err, &missing):
		BadRequestWithData(c, MsgChunkMissing, gin.H{
			"missingChunk": missing.Index,
		})
	case errors.As(err, &storageErr):
		h.log.Error("storage failure", zap.String("op", storageErr.Op), zap.Error(storageErr.Err))
		InternalError(c, MsgStorageFailed)
	default:
		h.log.Error("upload operation failed", zap.Error(err))
		InternalError(c, fallback)
	}
}
