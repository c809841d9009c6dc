package domain

import "time"

// UserRole 用户角色
type UserRole string

const (
	// RoleAdmin 管理员：管理看板、处理客户提交
	RoleAdmin UserRole = "admin"
	// RoleClient 客户：通过简化门户上传文件、创建提交
	RoleClient UserRole = "client"
)

// User 系统用户
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(100);not null"` // bcrypt 哈希，永不下发
	Role         UserRole   `json:"role" gorm:"type:varchar(20);index;not null"`
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsAdmin 判断用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
