package service

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

var (
	// ErrTagNotFound 标签不存在
	ErrTagNotFound = errors.New("tag not found")
	// ErrInvalidTagColor 标签颜色不是合法的十六进制色值
	ErrInvalidTagColor = errors.New("invalid tag color")
)

var tagColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TagService 标签管理服务，标签按看板隔离
type TagService struct {
	store storage.Store
	log   *zap.Logger
}

// NewTagService 创建标签服务
func NewTagService(store storage.Store, log *zap.Logger) *TagService {
	return &TagService{store: store, log: log}
}

// CreateTagInput 创建标签输入
type CreateTagInput struct {
	Name  string `json:"name" binding:"required,max=50"`
	Color string `json:"color" binding:"required"`
}

// CreateTag 在看板下创建标签
func (s *TagService) CreateTag(boardID string, input CreateTagInput) (*domain.Tag, error) {
	if !tagColorPattern.MatchString(input.Color) {
		return nil, ErrInvalidTagColor
	}
	if _, err := s.store.GetBoard(boardID); err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	tag := &domain.Tag{
		ID:        uuid.New().String(),
		BoardID:   boardID,
		Name:      input.Name,
		Color:     input.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// ListTags 列出看板下的全部标签
func (s *TagService) ListTags(boardID string) ([]domain.Tag, error) {
	return s.store.ListTagsByBoard(boardID)
}

// UpdateTagInput 更新标签输入
type UpdateTagInput struct {
	Name  *string `json:"name" binding:"omitempty,max=50"`
	Color *string `json:"color"`
}

// UpdateTag 更新标签名称或颜色
func (s *TagService) UpdateTag(id string, input UpdateTagInput) (*domain.Tag, error) {
	tag, err := s.store.GetTag(id)
	if err != nil {
		if errors.Is(err, storage.ErrTagNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		tag.Name = *input.Name
	}
	if input.Color != nil {
		if !tagColorPattern.MatchString(*input.Color) {
			return nil, ErrInvalidTagColor
		}
		tag.Color = *input.Color
	}
	tag.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag 删除标签并解除其所有卡片关联
func (s *TagService) DeleteTag(id string) error {
	if _, err := s.store.GetTag(id); err != nil {
		if errors.Is(err, storage.ErrTagNotFound) {
			return ErrTagNotFound
		}
		return err
	}
	return s.store.DeleteTag(id)
}

// AttachTag 给卡片贴标签，标签与卡片必须属于同一看板
func (s *TagService) AttachTag(cardID, tagID string) error {
	card, err := s.store.GetCard(cardID)
	if err != nil {
		if errors.Is(err, storage.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}
	tag, err := s.store.GetTag(tagID)
	if err != nil {
		if errors.Is(err, storage.ErrTagNotFound) {
			return ErrTagNotFound
		}
		return err
	}
	if card.BoardID != tag.BoardID {
		return ErrBoardMismatch
	}
	return s.store.AddCardTag(cardID, tagID)
}

// DetachTag 移除卡片上的标签
func (s *TagService) DetachTag(cardID, tagID string) error {
	return s.store.RemoveCardTag(cardID, tagID)
}

// CardTags 返回卡片上的全部标签
func (s *TagService) CardTags(cardID string) ([]domain.Tag, error) {
	if _, err := s.store.GetCard(cardID); err != nil {
		if errors.Is(err, storage.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return s.store.GetCardTags(cardID)
}
