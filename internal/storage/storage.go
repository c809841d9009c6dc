package storage

import (
	"errors"
	"time"

	"taskboard/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已存在错误
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists 用户名已存在错误
	ErrUsernameExists = errors.New("username already exists")
	// ErrBoardNotFound 看板未找到错误
	ErrBoardNotFound = errors.New("board not found")
	// ErrListNotFound 列表未找到错误
	ErrListNotFound = errors.New("list not found")
	// ErrCardNotFound 卡片未找到错误
	ErrCardNotFound = errors.New("card not found")
	// ErrTagNotFound 标签未找到错误
	ErrTagNotFound = errors.New("tag not found")
	// ErrSubmissionNotFound 提交未找到错误
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAttachmentNotFound 附件未找到错误
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrSessionNotFound 上传会话未找到（或已被 finalize 消费）
	ErrSessionNotFound = errors.New("upload session not found")
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	UpdateLastLogin(userID string) error
}

// BoardRepository 定义看板数据存取操作。
type BoardRepository interface {
	SaveBoard(board *domain.Board) error
	GetBoard(id string) (*domain.Board, error)
	ListBoardsByOwner(ownerID string) ([]domain.Board, error)
	DeleteBoard(id string) error

	SaveList(list *domain.List) error
	GetList(id string) (*domain.List, error)
	ListListsByBoard(boardID string) ([]domain.List, error)
	DeleteList(id string) error

	SaveCard(card *domain.Card) error
	GetCard(id string) (*domain.Card, error)
	ListCardsByList(listID string) ([]domain.Card, error)
	MoveCard(cardID, toListID string, position int) error
	DeleteCard(id string) error
}

// TagRepository 定义标签数据存取操作。
type TagRepository interface {
	CreateTag(tag *domain.Tag) error
	GetTag(id string) (*domain.Tag, error)
	ListTagsByBoard(boardID string) ([]domain.Tag, error)
	UpdateTag(tag *domain.Tag) error
	DeleteTag(id string) error
	AddCardTag(cardID, tagID string) error
	RemoveCardTag(cardID, tagID string) error
	GetCardTags(cardID string) ([]domain.Tag, error)
}

// SubmissionRepository 定义客户提交数据存取操作。
type SubmissionRepository interface {
	SaveSubmission(submission *domain.Submission) error
	GetSubmission(id string) (*domain.Submission, error)
	ListSubmissionsByClient(clientID string) ([]domain.Submission, error)
	ListSubmissions(status *domain.SubmissionStatus) ([]domain.Submission, error)
}

// AttachmentRepository 定义附件元数据存取操作。
type AttachmentRepository interface {
	CreateAttachment(attachment *domain.Attachment) error
	GetAttachment(id string) (*domain.Attachment, error)
	ListAttachmentsByParent(kind domain.ParentKind, parentID string) ([]domain.Attachment, error)
	UpdateAttachmentTranscription(id string, status domain.TranscriptionStatus, text string) error
	DeleteAttachment(id string) error
}

// UploadSessionRepository 定义分块上传会话存取操作。
//
// AddUploadChunk 必须原子执行：并发的分块到达不允许破坏已接收集合，
// 重复登记同一索引幂等。
type UploadSessionRepository interface {
	CreateUploadSession(session *domain.UploadSession) error
	GetUploadSession(id string) (*domain.UploadSession, error)
	AddUploadChunk(sessionID string, index int, size int64) (int, error)
	ListUploadChunks(sessionID string) ([]int, error)
	DeleteUploadSession(id string) error
	ListExpiredUploadSessions(before time.Time) ([]domain.UploadSession, error)
}

// Store 聚合所有仓储接口
type Store interface {
	UserRepository
	BoardRepository
	TagRepository
	SubmissionRepository
	AttachmentRepository
	UploadSessionRepository

	// Health 检查底层存储连通性
	Health() error
}
