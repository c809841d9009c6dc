package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/service"
)

// BoardHandler 处理看板与列表管理请求（仅管理员）
type BoardHandler struct {
	boards *service.BoardService
	log    *zap.Logger
}

// NewBoardHandler 创建看板处理器
func NewBoardHandler(boards *service.BoardService, log *zap.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, log: log}
}

// renderBoardError 把看板服务错误映射为 HTTP 响应
func (h *BoardHandler) renderBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBoardNotFound),
		errors.Is(err, service.ErrListNotFound):
		NotFound(c, GetErrorMessage(err))
	default:
		h.log.Error("board operation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
	}
}

// CreateBoard 创建看板
//
// POST /v1/boards
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	var req service.CreateBoardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	board, err := h.boards.CreateBoard(middleware.UserID(c), req)
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Created(c, board)
}

// ListBoards 列出当前管理员的看板
//
// GET /v1/boards
func (h *BoardHandler) ListBoards(c *gin.Context) {
	boards, err := h.boards.ListBoards(middleware.UserID(c))
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, boards)
}

// GetBoard 查询看板
//
// GET /v1/boards/:id
func (h *BoardHandler) GetBoard(c *gin.Context) {
	board, err := h.boards.GetBoard(c.Param("id"))
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, board)
}

// UpdateBoard 更新看板
//
// PATCH /v1/boards/:id
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	var req service.UpdateBoardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	board, err := h.boards.UpdateBoard(c.Param("id"), req)
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, board)
}

// DeleteBoard 删除看板
//
// DELETE /v1/boards/:id
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	if err := h.boards.DeleteBoard(c.Param("id")); err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, nil)
}

// CreateList 在看板末尾追加列表
//
// POST /v1/boards/:id/lists
func (h *BoardHandler) CreateList(c *gin.Context) {
	var req service.CreateListInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	list, err := h.boards.CreateList(c.Param("id"), req)
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Created(c, list)
}

// ListLists 列出看板的列表
//
// GET /v1/boards/:id/lists
func (h *BoardHandler) ListLists(c *gin.Context) {
	lists, err := h.boards.ListLists(c.Param("id"))
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, lists)
}

type renameListRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

// RenameList 重命名列表
//
// PATCH /v1/lists/:id
func (h *BoardHandler) RenameList(c *gin.Context) {
	var req renameListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	list, err := h.boards.RenameList(c.Param("id"), req.Title)
	if err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, list)
}

// DeleteList 删除列表
//
// DELETE /v1/lists/:id
func (h *BoardHandler) DeleteList(c *gin.Context) {
	if err := h.boards.DeleteList(c.Param("id")); err != nil {
		h.renderBoardError(c, err)
		return
	}
	Success(c, nil)
}
