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
	// ErrBoardNotFound 看板不存在
	ErrBoardNotFound = errors.New("board not found")
	// ErrListNotFound 列表不存在
	ErrListNotFound = errors.New("list not found")
	// ErrBoardMismatch 列表与卡片不属于同一看板
	ErrBoardMismatch = errors.New("entity does not belong to this board")
)

// BoardService 看板与列表管理服务
type BoardService struct {
	store storage.Store
	log   *zap.Logger
}

// NewBoardService 创建看板服务
func NewBoardService(store storage.Store, log *zap.Logger) *BoardService {
	return &BoardService{store: store, log: log}
}

// CreateBoardInput 创建看板输入
type CreateBoardInput struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=500"`
}

// CreateBoard 创建看板
func (s *BoardService) CreateBoard(ownerID string, input CreateBoardInput) (*domain.Board, error) {
	now := time.Now().UTC()
	board := &domain.Board{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveBoard(board); err != nil {
		return nil, err
	}

	s.log.Info("board created", zap.String("board_id", board.ID), zap.String("owner_id", ownerID))
	return board, nil
}

// GetBoard 查询看板
func (s *BoardService) GetBoard(id string) (*domain.Board, error) {
	board, err := s.store.GetBoard(id)
	if err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return board, nil
}

// ListBoards 列出某个管理员的全部看板
func (s *BoardService) ListBoards(ownerID string) ([]domain.Board, error) {
	return s.store.ListBoardsByOwner(ownerID)
}

// UpdateBoardInput 更新看板输入
type UpdateBoardInput struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// UpdateBoard 更新看板名称与描述
func (s *BoardService) UpdateBoard(id string, input UpdateBoardInput) (*domain.Board, error) {
	board, err := s.GetBoard(id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		board.Title = *input.Title
	}
	if input.Description != nil {
		board.Description = *input.Description
	}
	board.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveBoard(board); err != nil {
		return nil, err
	}
	return board, nil
}

// DeleteBoard 删除看板及其列表、卡片
func (s *BoardService) DeleteBoard(id string) error {
	if _, err := s.GetBoard(id); err != nil {
		return err
	}
	return s.store.DeleteBoard(id)
}

// CreateListInput 创建列表输入
type CreateListInput struct {
	Title string `json:"title" binding:"required,max=255"`
}

// CreateList 在看板末尾追加一个列表
func (s *BoardService) CreateList(boardID string, input CreateListInput) (*domain.List, error) {
	if _, err := s.GetBoard(boardID); err != nil {
		return nil, err
	}

	existing, err := s.store.ListListsByBoard(boardID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	list := &domain.List{
		ID:        uuid.New().String(),
		BoardID:   boardID,
		Title:     input.Title,
		Position:  len(existing),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveList(list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListLists 按位置升序返回看板的全部列表
func (s *BoardService) ListLists(boardID string) ([]domain.List, error) {
	if _, err := s.GetBoard(boardID); err != nil {
		return nil, err
	}
	return s.store.ListListsByBoard(boardID)
}

// RenameList 重命名列表
func (s *BoardService) RenameList(listID, title string) (*domain.List, error) {
	list, err := s.store.GetList(listID)
	if err != nil {
		if errors.Is(err, storage.ErrListNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	list.Title = title
	list.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveList(list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteList 删除列表及其卡片
func (s *BoardService) DeleteList(listID string) error {
	if _, err := s.store.GetList(listID); err != nil {
		if errors.Is(err, storage.ErrListNotFound) {
			return ErrListNotFound
		}
		return err
	}
	return s.store.DeleteList(listID)
}
