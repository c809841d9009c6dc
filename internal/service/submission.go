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
	// ErrSubmissionNotFound 提交不存在
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNotSubmissionOwner 客户只能查看自己的提交
	ErrNotSubmissionOwner = errors.New("submission does not belong to caller")
	// ErrAlreadyPromoted 提交已晋升为卡片
	ErrAlreadyPromoted = errors.New("submission already promoted")
	// ErrInvalidUrgency 非法的紧急程度
	ErrInvalidUrgency = errors.New("invalid urgency")
	// ErrInvalidSubmissionStatus 非法的提交状态
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")
)

// SubmissionService 客户提交服务
//
// 客户在简化门户创建提交并上传附件；管理员在看板侧审核提交，
// 可将其晋升为某个列表末尾的卡片。附件始终挂在提交上，晋升只在
// 卡片上记录来源提交 ID，不搬移附件。
type SubmissionService struct {
	store  storage.Store
	events EventPublisher
	log    *zap.Logger
}

// NewSubmissionService 创建提交服务
func NewSubmissionService(store storage.Store, log *zap.Logger) *SubmissionService {
	return &SubmissionService{store: store, log: log}
}

// SetEventPublisher 设置实时事件发布器
func (s *SubmissionService) SetEventPublisher(events EventPublisher) { s.events = events }

// CreateSubmissionInput 创建提交输入
type CreateSubmissionInput struct {
	Title    string                   `json:"title" binding:"required,max=255"`
	Notes    string                   `json:"notes"`
	Urgency  domain.SubmissionUrgency `json:"urgency"`
	Deadline *time.Time               `json:"deadline"`
}

// Create 客户创建一个新提交
func (s *SubmissionService) Create(clientID string, input CreateSubmissionInput) (*domain.Submission, error) {
	urgency := input.Urgency
	if urgency == "" {
		urgency = domain.UrgencyNormal
	}
	switch urgency {
	case domain.UrgencyLow, domain.UrgencyNormal, domain.UrgencyHigh:
	default:
		return nil, ErrInvalidUrgency
	}

	now := time.Now().UTC()
	submission := &domain.Submission{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Title:     input.Title,
		Notes:     input.Notes,
		Urgency:   urgency,
		Deadline:  input.Deadline,
		Status:    domain.SubmissionStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveSubmission(submission); err != nil {
		return nil, err
	}

	s.log.Info("submission created",
		zap.String("submission_id", submission.ID),
		zap.String("client_id", clientID),
		zap.String("urgency", string(urgency)),
	)
	if s.events != nil {
		s.events.Publish(Event{Type: EventSubmissionCreated, Payload: submission})
	}
	return submission, nil
}

// Get 查询提交；requesterID 非管理员时只能访问自己的提交
func (s *SubmissionService) Get(id, requesterID string, isAdmin bool) (*domain.Submission, error) {
	submission, err := s.store.GetSubmission(id)
	if err != nil {
		if errors.Is(err, storage.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if !isAdmin && submission.ClientID != requesterID {
		return nil, ErrNotSubmissionOwner
	}
	return submission, nil
}

// ListForClient 客户列出自己的全部提交
func (s *SubmissionService) ListForClient(clientID string) ([]domain.Submission, error) {
	return s.store.ListSubmissionsByClient(clientID)
}

// ListAll 管理员按状态筛选全部提交，status 为空时返回所有
func (s *SubmissionService) ListAll(status *domain.SubmissionStatus) ([]domain.Submission, error) {
	if status != nil {
		switch *status {
		case domain.SubmissionStatusNew, domain.SubmissionStatusInReview,
			domain.SubmissionStatusPromoted, domain.SubmissionStatusArchived:
		default:
			return nil, ErrInvalidSubmissionStatus
		}
	}
	return s.store.ListSubmissions(status)
}

// UpdateStatus 管理员更新提交状态（审核中 / 归档）
//
// 晋升状态只能通过 Promote 进入，这里拒绝直接设置。
func (s *SubmissionService) UpdateStatus(id string, status domain.SubmissionStatus) (*domain.Submission, error) {
	switch status {
	case domain.SubmissionStatusNew, domain.SubmissionStatusInReview, domain.SubmissionStatusArchived:
	default:
		return nil, ErrInvalidSubmissionStatus
	}

	submission, err := s.store.GetSubmission(id)
	if err != nil {
		if errors.Is(err, storage.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.Status == domain.SubmissionStatusPromoted {
		return nil, ErrAlreadyPromoted
	}

	submission.Status = status
	submission.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveSubmission(submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// Promote 将提交晋升为目标列表末尾的卡片
//
// 卡片标题、描述、截止日期取自提交本身；提交状态置为 promoted
// 并记录卡片 ID。已晋升的提交不允许重复晋升。
func (s *SubmissionService) Promote(id, listID string) (*domain.Card, error) {
	submission, err := s.store.GetSubmission(id)
	if err != nil {
		if errors.Is(err, storage.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.Status == domain.SubmissionStatusPromoted {
		return nil, ErrAlreadyPromoted
	}

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
		ID:           uuid.New().String(),
		ListID:       listID,
		BoardID:      list.BoardID,
		Title:        submission.Title,
		Description:  submission.Notes,
		Position:     len(siblings),
		DueDate:      submission.Deadline,
		SubmissionID: submission.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.SaveCard(card); err != nil {
		return nil, err
	}

	submission.Status = domain.SubmissionStatusPromoted
	submission.PromotedCardID = card.ID
	submission.UpdatedAt = now
	if err := s.store.SaveSubmission(submission); err != nil {
		return nil, err
	}

	s.log.Info("submission promoted",
		zap.String("submission_id", id),
		zap.String("card_id", card.ID),
		zap.String("list_id", listID),
	)
	if s.events != nil {
		s.events.Publish(Event{Type: EventSubmissionPromoted, Payload: submission})
	}
	return card, nil
}
