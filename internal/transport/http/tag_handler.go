package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/service"
)

// TagHandler 处理标签管理请求（仅管理员）
type TagHandler struct {
	tags *service.TagService
	log  *zap.Logger
}

// NewTagHandler 创建标签处理器
func NewTagHandler(tags *service.TagService, log *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, log: log}
}

// renderTagError 把标签服务错误映射为 HTTP 响应
func (h *TagHandler) renderTagError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrBoardNotFound):
		NotFound(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrInvalidTagColor):
		BadRequest(c, GetErrorMessage(err))
	default:
		h.log.Error("tag operation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
	}
}

// CreateTag 在看板下创建标签
//
// POST /v1/boards/:id/tags
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req service.CreateTagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	tag, err := h.tags.CreateTag(c.Param("id"), req)
	if err != nil {
		h.renderTagError(c, err)
		return
	}
	Created(c, tag)
}

// ListTags 列出看板的标签
//
// GET /v1/boards/:id/tags
func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.ListTags(c.Param("id"))
	if err != nil {
		h.renderTagError(c, err)
		return
	}
	Success(c, tags)
}

// UpdateTag 更新标签
//
// PATCH /v1/tags/:id
func (h *TagHandler) UpdateTag(c *gin.Context) {
	var req service.UpdateTagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	tag, err := h.tags.UpdateTag(c.Param("id"), req)
	if err != nil {
		h.renderTagError(c, err)
		return
	}
	Success(c, tag)
}

// DeleteTag 删除标签
//
// DELETE /v1/tags/:id
func (h *TagHandler) DeleteTag(c *gin.Context) {
	if err := h.tags.DeleteTag(c.Param("id")); err != nil {
		h.renderTagError(c, err)
		return
	}
	Success(c, nil)
}
