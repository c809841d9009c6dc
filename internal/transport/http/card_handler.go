package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/service"
)

// CardHandler 处理卡片管理请求（仅管理员）
type CardHandler struct {
	cards *service.CardService
	tags  *service.TagService
	log   *zap.Logger
}

// NewCardHandler 创建卡片处理器
func NewCardHandler(cards *service.CardService, tags *service.TagService, log *zap.Logger) *CardHandler {
	return &CardHandler{cards: cards, tags: tags, log: log}
}

// renderCardError 把卡片服务错误映射为 HTTP 响应
func (h *CardHandler) renderCardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrListNotFound),
		errors.Is(err, service.ErrTagNotFound):
		NotFound(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, service.ErrBoardMismatch):
		BadRequest(c, GetErrorMessage(err))
	default:
		h.log.Error("card operation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
	}
}

// CreateCard 在列表末尾追加卡片
//
// POST /v1/lists/:id/cards
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req service.CreateCardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	card, err := h.cards.CreateCard(c.Param("id"), req)
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Created(c, card)
}

// ListCards 列出列表的卡片
//
// GET /v1/lists/:id/cards
func (h *CardHandler) ListCards(c *gin.Context) {
	cards, err := h.cards.ListCards(c.Param("id"))
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, cards)
}

// GetCard 查询卡片
//
// GET /v1/cards/:id
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cards.GetCard(c.Param("id"))
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, card)
}

// UpdateCard 更新卡片内容
//
// PATCH /v1/cards/:id
func (h *CardHandler) UpdateCard(c *gin.Context) {
	var req service.UpdateCardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	card, err := h.cards.UpdateCard(c.Param("id"), req)
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, card)
}

// MoveCard 移动卡片
//
// POST /v1/cards/:id/move
func (h *CardHandler) MoveCard(c *gin.Context) {
	var req service.MoveCardInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	card, err := h.cards.MoveCard(c.Param("id"), req)
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, card)
}

// DeleteCard 删除卡片
//
// DELETE /v1/cards/:id
func (h *CardHandler) DeleteCard(c *gin.Context) {
	if err := h.cards.DeleteCard(c.Param("id")); err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, nil)
}

// AttachTag 给卡片贴标签
//
// POST /v1/cards/:id/tags/:tagId
func (h *CardHandler) AttachTag(c *gin.Context) {
	if err := h.tags.AttachTag(c.Param("id"), c.Param("tagId")); err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, nil)
}

// DetachTag 移除卡片上的标签
//
// DELETE /v1/cards/:id/tags/:tagId
func (h *CardHandler) DetachTag(c *gin.Context) {
	if err := h.tags.DetachTag(c.Param("id"), c.Param("tagId")); err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, nil)
}

// CardTags 返回卡片上的标签
//
// GET /v1/cards/:id/tags
func (h *CardHandler) CardTags(c *gin.Context) {
	tags, err := h.tags.CardTags(c.Param("id"))
	if err != nil {
		h.renderCardError(c, err)
		return
	}
	Success(c, tags)
}
