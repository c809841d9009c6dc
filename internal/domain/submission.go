package domain

import "time"

// SubmissionUrgency 提交紧急程度
type SubmissionUrgency string

const (
	UrgencyLow    SubmissionUrgency = "low"
	UrgencyNormal SubmissionUrgency = "normal"
	UrgencyHigh   SubmissionUrgency = "high"
)

// SubmissionStatus 提交状态
type SubmissionStatus string

const (
	// SubmissionStatusNew 新提交，管理员尚未处理
	SubmissionStatusNew SubmissionStatus = "new"
	// SubmissionStatusInReview 管理员审核中
	SubmissionStatusInReview SubmissionStatus = "in_review"
	// SubmissionStatusPromoted 已晋升为看板卡片
	SubmissionStatusPromoted SubmissionStatus = "promoted"
	// SubmissionStatusArchived 已归档
	SubmissionStatusArchived SubmissionStatus = "archived"
)

// Submission 客户提交的任务
//
// 客户通过简化门户上传大文件并附带元数据（紧急程度、截止日期、备注），
// 提交对管理员可见，可晋升为看板卡片。附件始终挂在提交本身上，
// 晋升只在卡片上记录来源提交 ID。
type Submission struct {
	ID       string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ClientID string            `json:"clientId" gorm:"type:varchar(36);index;not null"`
	Title    string            `json:"title" gorm:"type:varchar(255);not null"`
	Notes    string            `json:"notes" gorm:"type:text"`
	Urgency  SubmissionUrgency `json:"urgency" gorm:"type:varchar(20);default:'normal'"`
	Deadline *time.Time        `json:"deadline,omitempty"`
	Status   SubmissionStatus  `json:"status" gorm:"type:varchar(20);index;default:'new'"`
	// PromotedCardID 晋升后对应的卡片 ID（可为空）
	PromotedCardID string    `json:"promotedCardId,omitempty" gorm:"type:varchar(36)"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
