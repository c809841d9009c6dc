package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

var (
	// ErrCardNotFound 卡片不存在
	ErrCardNotFound = errors.New("card not found")
	// ErrInvalidPosition 目标位置非法
	ErrInvalidPosition = errors.New("invalid card position")
)

// CardService 卡片管理服务
//
// 卡片在列表内的 Position 始终保持连续（0..n-1）。移动卡片时客户端
// 只声明目标列表与目标位置，重排完全由存储层在一次原子操作内完成，
// 并发拖拽也不会留下重复或空洞的位置。
type CardService struct {
	store  storage.Store
	events EventPublisher
	log    *zap.Logger
}

// NewCardService 创建卡片服务
func NewCardService(store storage.Store, log *zap.Logger) *CardService {
	return &CardService{store: store, log: log}
}

// SetEventPublisher 设置实时事件发布器
func (s *CardService) SetEventPublisher(events EventPublisher) { s.events = events }

// CreateCardInput 创建卡片输入
type CreateCardInput struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// CreateCard 在列表末尾追加一张卡片
func (s *CardService) CreateCard(listID string, input CreateCardInput) (*domain.Card, error) {
	list, err := s.store.GetList(listID)
	if err != nil {
		if errors.Is(err, storage.ErrListNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	siblings, err := s.store.ListCardsByList(listID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:          uuid.New().String(),
		ListID:      listID,
		BoardID:     list.BoardID,
		Title:       input.Title,
		Description: input.Description,
		Position:    len(siblings),
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

// GetCard 查询卡片
func (s *CardService) GetCard(id string) (*domain.Card, error) {
	card, err := s.store.GetCard(id)
	if err != nil {
		if errors.Is(err, storage.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}

// ListCards 按位置升序返回列表的全部卡片
func (s *CardService) ListCards(listID string) ([]domain.Card, error) {
	if _, err := s.store.GetList(listID); err != nil {
		if errors.Is(err, storage.ErrListNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return s.store.ListCardsByList(listID)
}

// UpdateCardInput 更新卡片输入
type UpdateCardInput struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateCard 更新卡片内容（不改变位置）
func (s *CardService) UpdateCard(id string, input UpdateCardInput) (*domain.Card, error) {
	card, err := s.GetCard(id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		card.Title = *input.Title
	}
	if input.Description != nil {
		card.Description = *input.Description
	}
	if input.DueDate != nil {
		card.DueDate = input.DueDate
	}
	card.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

// MoveCardInput 移动卡片输入
type MoveCardInput struct {
	ToListID string `json:"toListId" binding:"required"`
	Position int    `json:"position"`
}

// MoveCard 移动卡片到目标列表的目标位置
//
// 目标位置超出范围时夹取到列表末尾。源列表与目标列表的兄弟卡片
// 由存储层统一重排。
func (s *CardService) MoveCard(cardID string, input MoveCardInput) (*domain.Card, error) {
	if input.Position < 0 {
		return nil, ErrInvalidPosition
	}
	if _, err := s.GetCard(cardID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetList(input.ToListID); err != nil {
		if errors.Is(err, storage.ErrListNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	if err := s.store.MoveCard(cardID, input.ToListID, input.Position); err != nil {
		return nil, err
	}

	card, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, err
	}

	s.log.Info("card moved",
		zap.String("card_id", cardID),
		zap.String("to_list_id", input.ToListID),
		zap.Int("position", card.Position),
	)
	if s.events != nil {
		s.events.Publish(Event{Type: EventCardMoved, Payload: card})
	}
	return card, nil
}

// DeleteCard 删除卡片并重排兄弟卡片
func (s *CardService) DeleteCard(id string) error {
	if _, err := s.GetCard(id); err != nil {
		return err
	}
	return s.store.DeleteCard(id)
}
