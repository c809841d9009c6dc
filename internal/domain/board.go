package domain

import "time"

// Board 看板
type Board struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID     string    `json:"ownerId" gorm:"type:varchar(36);index;not null"` // 创建看板的管理员
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:varchar(1000)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// List 看板中的列表（泳道）
//
// Position 在同一看板内保持连续（0..n-1），每次移动后由服务端重排。
type List struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BoardID   string    `json:"boardId" gorm:"type:varchar(36);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Card 看板卡片
//
// Position 在同一列表内保持连续（0..n-1）；MoveCard 会对源列表和目标
// 列表的所有兄弟卡片重新编号，不允许出现重复或空洞。
type Card struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ListID      string     `json:"listId" gorm:"type:varchar(36);index;not null"`
	BoardID     string     `json:"boardId" gorm:"type:varchar(36);index;not null"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Position    int        `json:"position" gorm:"not null"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	// SubmissionID 记录该卡片由哪个客户提交晋升而来（可为空）
	SubmissionID string    `json:"submissionId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
