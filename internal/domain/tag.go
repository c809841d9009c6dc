package domain

import "time"

// Tag 卡片标签
type Tag struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BoardID   string    `json:"boardId" gorm:"type:varchar(36);index;not null"` // 所属看板
	Name      string    `json:"name" gorm:"type:varchar(50);not null"`
	Color     string    `json:"color" gorm:"type:varchar(20)"` // 十六进制颜色
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardTag 卡片-标签关联
type CardTag struct {
	CardID    string    `json:"cardId" gorm:"type:varchar(36);primaryKey"`
	TagID     string    `json:"tagId" gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}
