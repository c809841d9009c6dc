package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/service"
)

// SubmissionHandler 处理客户提交相关请求
//
// 客户端点（创建、查看自己的提交）对 client 角色开放；审核与晋升
// 端点仅管理员可用。
type SubmissionHandler struct {
	submissions *service.SubmissionService
	log         *zap.Logger
}

// NewSubmissionHandler 创建提交处理器
func NewSubmissionHandler(submissions *service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, log: log}
}

// renderSubmissionError 把提交服务错误映射为 HTTP 响应
func (h *SubmissionHandler) renderSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrListNotFound):
		NotFound(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrNotSubmissionOwner):
		Forbidden(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrAlreadyPromoted):
		Conflict(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrInvalidUrgency),
		errors.Is(err, service.ErrInvalidSubmissionStatus):
		BadRequest(c, GetErrorMessage(err))
	default:
		h.log.Error("submission operation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
	}
}

// CreateSubmission 客户创建提交
//
// POST /v1/submissions
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req service.CreateSubmissionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	submission, err := h.submissions.Create(middleware.UserID(c), req)
	if err != nil {
		h.renderSubmissionError(c, err)
		return
	}
	Created(c, submission)
}

// ListSubmissions 列出提交
//
// GET /v1/submissions；客户只看到自己的提交，管理员看到全部并可用
// ?status= 筛选。
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		submissions, err := h.submissions.ListForClient(middleware.UserID(c))
		if err != nil {
			h.renderSubmissionError(c, err)
			return
		}
		Success(c, submissions)
		return
	}

	var status *domain.SubmissionStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.SubmissionStatus(raw)
		status = &s
	}

	submissions, err := h.submissions.ListAll(status)
	if err != nil {
		h.renderSubmissionError(c, err)
		return
	}
	Success(c, submissions)
}

// GetSubmission 查询提交
//
// GET /v1/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submission, err := h.submissions.Get(c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.renderSubmissionError(c, err)
		return
	}
	Success(c, submission)
}

type updateStatusRequest struct {
	Status domain.SubmissionStatus `json:"status" binding:"required"`
}

// UpdateStatus 管理员更新提交状态
//
// PATCH /v1/submissions/:id/status
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	submission, err := h.submissions.UpdateStatus(c.Param("id"), req.Status)
	if err != nil {
		h.renderSubmissionError(c, err)
		return
	}
	Success(c, submission)
}

type promoteRequest struct {
	ListID string `json:"listId" binding:"required"`
}

// PromoteSubmission 管理员将提交晋升为卡片
//
// POST /v1/submissions/:id/promote
func (h *SubmissionHandler) PromoteSubmission(c *gin.Context) {
	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	card, err := h.submissions.Promote(c.Param("id"), req.ListID)
	if err != nil {
		h.renderSubmissionError(c, err)
		return
	}
	Created(c, card)
}
