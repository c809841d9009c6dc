package domain

import "time"

// UploadSession 分块上传会话
//
// 会话在 init 时创建并绑定创建者（OwnerID），任何其它主体对该会话的
// 分块/状态/完成调用都会被拒绝。会话由 finalize 消费删除；
// 超过 ExpiresAt 仍未完成的会话由后台清扫任务连同孤儿分块一起回收。
type UploadSession struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID      string     `json:"ownerId" gorm:"type:varchar(36);index;not null"`
	ParentKind   ParentKind `json:"parentKind" gorm:"type:varchar(20);not null"`
	ParentID     string     `json:"parentId" gorm:"type:varchar(36);not null"`
	FileName     string     `json:"fileName" gorm:"type:varchar(255);not null"`
	DeclaredSize int64      `json:"fileSize" gorm:"not null"` // 客户端声明的总大小，不做独立校验
	MimeType     string     `json:"mimeType" gorm:"type:varchar(100)"`
	ChunkSize    int64      `json:"chunkSize" gorm:"not null"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt" gorm:"index"`
}

// ExpectedChunks 计算会话应收到的分块总数（ceil(DeclaredSize / ChunkSize)）
//
// 声明大小为 0 的文件仍按 1 个空分块处理，保证小文件与大文件走同一条路径。
func (s *UploadSession) ExpectedChunks() int {
	if s.ChunkSize <= 0 {
		return 0
	}
	n := (s.DeclaredSize + s.ChunkSize - 1) / s.ChunkSize
	if n < 1 {
		n = 1
	}
	return int(n)
}

// IsExpired 判断会话是否已过期
func (s *UploadSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// UploadChunk 已接收分块的登记记录
//
// (SessionID, ChunkIndex) 唯一，重复上传同一分块只覆盖字节、不重复计数。
// 分块字节本身由文件系统分块仓存储，这里只记元数据。
type UploadChunk struct {
	ID         uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	SessionID  string    `json:"sessionId" gorm:"type:varchar(36);uniqueIndex:idx_session_chunk;not null"`
	ChunkIndex int       `json:"chunkIndex" gorm:"uniqueIndex:idx_session_chunk;not null"`
	Size       int64     `json:"size" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
