package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/service"
)

// AttachmentHandler 处理附件查询与转写回调
type AttachmentHandler struct {
	attachments *service.AttachmentService
	log         *zap.Logger
}

// NewAttachmentHandler 创建附件处理器
func NewAttachmentHandler(attachments *service.AttachmentService, log *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, log: log}
}

// GetAttachment 查询单个附件
//
// GET /v1/attachments/:id
func (h *AttachmentHandler) GetAttachment(c *gin.Context) {
	attachment, err := h.attachments.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAttachmentNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, attachment)
}

// ListByParent 列出父实体下的附件
//
// GET /v1/attachments?parentKind=submission&parentId=xxx
func (h *AttachmentHandler) ListByParent(c *gin.Context) {
	kind := domain.ParentKind(c.Query("parentKind"))
	parentID := c.Query("parentId")
	if parentID == "" {
		BadRequest(c, "parentId 不能为空")
		return
	}

	attachments, err := h.attachments.ListByParent(kind, parentID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidParentKind) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, attachments)
}

// UpdateTranscription 转写结果回调
//
// PATCH /v1/attachments/:id/transcription，由外部转写服务调用，
// 是附件记录唯一的可变路径。
func (h *AttachmentHandler) UpdateTranscription(c *gin.Context) {
	var req service.UpdateTranscriptionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	attachment, err := h.attachments.UpdateTranscription(c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttachmentNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrInvalidTranscriptionStatus):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("transcription update failed", zap.Error(err))
			InternalError(c, MsgInternalError)
		}
		return
	}
	Success(c, attachment)
}

// DeleteAttachment 删除附件
//
// DELETE /v1/attachments/:id
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	if err := h.attachments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrAttachmentNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("attachment delete failed", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, nil)
}
