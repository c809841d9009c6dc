// Package hybrid 组合 SQL 持久化与 Redis 缓存。
package hybrid

import (
	"fmt"
	"time"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage/redis"
	sqlstore "taskboard/backend/internal/storage/sql"
)

const (
	userCacheTTL       = 30 * time.Minute
	boardCacheTTL      = 10 * time.Minute
	attachmentCacheTTL = 30 * time.Minute
	sessionCacheTTL    = 1 * time.Hour
)

// Store 混合存储实现，SQL 为事实来源，Redis 缓存热点读
//
// 上传会话是最热的读路径（每个分块请求都要加载一次），会话元数据
// 创建后不可变，只会被整体删除，按 TTL 缓存安全；已接收分块集合
// 是可变状态，始终直读 SQL，不缓存。
type Store struct {
	sql   *sqlstore.Store
	cache *redis.Cache
}

// NewStore 创建混合存储实例
func NewStore(dbType, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	sqlStore, err := sqlstore.NewStore(dbType, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{sql: sqlStore, cache: cache}, nil
}

// Wrap 在已有的 SQL 存储与缓存之上构造混合存储
func Wrap(sqlStore *sqlstore.Store, cache *redis.Cache) *Store {
	return &Store{sql: sqlStore, cache: cache}
}

// Migrate 执行数据库迁移
func (s *Store) Migrate() error {
	return s.sql.Migrate()
}

// Health 检查底层存储连通性
func (s *Store) Health() error {
	return s.sql.Health()
}

// Cache 返回底层缓存，供健康检查使用
func (s *Store) Cache() *redis.Cache {
	return s.cache
}

// Close 关闭底层连接
func (s *Store) Close() error {
	s.cache.Close()
	return s.sql.Close()
}

// ========== 用户 ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	return s.sql.CreateUser(user)
}

// GetUserByID 按 ID 查询用户，优先走缓存
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	if user, err := s.cache.GetCachedUser(id); err == nil {
		return user, nil
	}

	user, err := s.sql.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	s.cache.CacheUser(user, userCacheTTL)
	return user, nil
}

// GetUserByEmail 按邮箱查询用户（登录路径，不缓存）
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	return s.sql.GetUserByEmail(email)
}

// GetUserByUsername 按用户名查询用户（登录路径，不缓存）
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	return s.sql.GetUserByUsername(username)
}

// UpdateUser 更新用户并失效缓存
func (s *Store) UpdateUser(user *domain.User) error {
	if err := s.sql.UpdateUser(user); err != nil {
		return err
	}
	s.cache.DeleteCachedUser(user.ID)
	return nil
}

// UpdateLastLogin 更新最后登录时间并失效缓存
func (s *Store) UpdateLastLogin(userID string) error {
	if err := s.sql.UpdateLastLogin(userID); err != nil {
		return err
	}
	s.cache.DeleteCachedUser(userID)
	return nil
}

// ========== 看板 ==========

// SaveBoard 保存看板并失效缓存
func (s *Store) SaveBoard(board *domain.Board) error {
	if err := s.sql.SaveBoard(board); err != nil {
		return err
	}
	s.cache.DeleteCachedBoard(board.ID)
	return nil
}

// GetBoard 查询看板，优先走缓存
func (s *Store) GetBoard(id string) (*domain.Board, error) {
	if board, err := s.cache.GetCachedBoard(id); err == nil {
		return board, nil
	}

	board, err := s.sql.GetBoard(id)
	if err != nil {
		return nil, err
	}
	s.cache.CacheBoard(board, boardCacheTTL)
	return board, nil
}

// ListBoardsByOwner 列出某管理员的全部看板
func (s *Store) ListBoardsByOwner(ownerID string) ([]domain.Board, error) {
	return s.sql.ListBoardsByOwner(ownerID)
}

// DeleteBoard 删除看板并失效缓存
func (s *Store) DeleteBoard(id string) error {
	if err := s.sql.DeleteBoard(id); err != nil {
		return err
	}
	s.cache.DeleteCachedBoard(id)
	return nil
}

// SaveList 保存列表
func (s *Store) SaveList(list *domain.List) error {
	return s.sql.SaveList(list)
}

// GetList 查询列表
func (s *Store) GetList(id string) (*domain.List, error) {
	return s.sql.GetList(id)
}

// ListListsByBoard 列出看板的列表
func (s *Store) ListListsByBoard(boardID string) ([]domain.List, error) {
	return s.sql.ListListsByBoard(boardID)
}

// DeleteList 删除列表
func (s *Store) DeleteList(id string) error {
	return s.sql.DeleteList(id)
}

// SaveCard 保存卡片
func (s *Store) SaveCard(card *domain.Card) error {
	return s.sql.SaveCard(card)
}

// GetCard 查询卡片
func (s *Store) GetCard(id string) (*domain.Card, error) {
	return s.sql.GetCard(id)
}

// ListCardsByList 列出列表的卡片
func (s *Store) ListCardsByList(listID string) ([]domain.Card, error) {
	return s.sql.ListCardsByList(listID)
}

// MoveCard 移动卡片（位置重排完全在 SQL 事务内完成，不缓存）
func (s *Store) MoveCard(cardID, toListID string, position int) error {
	return s.sql.MoveCard(cardID, toListID, position)
}

// DeleteCard 删除卡片
func (s *Store) DeleteCard(id string) error {
	return s.sql.DeleteCard(id)
}

// ========== 标签 ==========

// CreateTag 创建标签
func (s *Store) CreateTag(tag *domain.Tag) error {
	return s.sql.CreateTag(tag)
}

// GetTag 查询标签
func (s *Store) GetTag(id string) (*domain.Tag, error) {
	return s.sql.GetTag(id)
}

// ListTagsByBoard 列出看板的标签
func (s *Store) ListTagsByBoard(boardID string) ([]domain.Tag, error) {
	return s.sql.ListTagsByBoard(boardID)
}

// UpdateTag 更新标签
func (s *Store) UpdateTag(tag *domain.Tag) error {
	return s.sql.UpdateTag(tag)
}

// DeleteTag 删除标签
func (s *Store) DeleteTag(id string) error {
	return s.sql.DeleteTag(id)
}

// AddCardTag 给卡片贴标签
func (s *Store) AddCardTag(cardID, tagID string) error {
	return s.sql.AddCardTag(cardID, tagID)
}

// RemoveCardTag 移除卡片上的标签
func (s *Store) RemoveCardTag(cardID, tagID string) error {
	return s.sql.RemoveCardTag(cardID, tagID)
}

// GetCardTags 返回卡片上的全部标签
func (s *Store) GetCardTags(cardID string) ([]domain.Tag, error) {
	return s.sql.GetCardTags(cardID)
}

// ========== 提交 ==========

// SaveSubmission 保存提交
func (s *Store) SaveSubmission(submission *domain.Submission) error {
	return s.sql.SaveSubmission(submission)
}

// GetSubmission 查询提交
func (s *Store) GetSubmission(id string) (*domain.Submission, error) {
	return s.sql.GetSubmission(id)
}

// ListSubmissionsByClient 列出某客户的全部提交
func (s *Store) ListSubmissionsByClient(clientID string) ([]domain.Submission, error) {
	return s.sql.ListSubmissionsByClient(clientID)
}

// ListSubmissions 按状态筛选全部提交
func (s *Store) ListSubmissions(status *domain.SubmissionStatus) ([]domain.Submission, error) {
	return s.sql.ListSubmissions(status)
}

// ========== 附件 ==========

// CreateAttachment 创建附件记录
func (s *Store) CreateAttachment(attachment *domain.Attachment) error {
	return s.sql.CreateAttachment(attachment)
}

// GetAttachment 查询附件，优先走缓存
func (s *Store) GetAttachment(id string) (*domain.Attachment, error) {
	if attachment, err := s.cache.GetCachedAttachment(id); err == nil {
		return attachment, nil
	}

	attachment, err := s.sql.GetAttachment(id)
	if err != nil {
		return nil, err
	}
	s.cache.CacheAttachment(attachment, attachmentCacheTTL)
	return attachment, nil
}

// ListAttachmentsByParent 列出父实体下的全部附件
func (s *Store) ListAttachmentsByParent(kind domain.ParentKind, parentID string) ([]domain.Attachment, error) {
	return s.sql.ListAttachmentsByParent(kind, parentID)
}

// UpdateAttachmentTranscription 更新附件转写字段并失效缓存
func (s *Store) UpdateAttachmentTranscription(id string, status domain.TranscriptionStatus, text string) error {
	if err := s.sql.UpdateAttachmentTranscription(id, status, text); err != nil {
		return err
	}
	s.cache.DeleteCachedAttachment(id)
	return nil
}

// DeleteAttachment 删除附件记录并失效缓存
func (s *Store) DeleteAttachment(id string) error {
	if err := s.sql.DeleteAttachment(id); err != nil {
		return err
	}
	s.cache.DeleteCachedAttachment(id)
	return nil
}

// ========== 上传会话 ==========

// CreateUploadSession 创建上传会话并预热缓存
func (s *Store) CreateUploadSession(session *domain.UploadSession) error {
	if err := s.sql.CreateUploadSession(session); err != nil {
		return err
	}
	s.cache.CacheUploadSession(session, sessionCacheTTL)
	return nil
}

// GetUploadSession 查询上传会话，优先走缓存
func (s *Store) GetUploadSession(id string) (*domain.UploadSession, error) {
	if session, err := s.cache.GetCachedUploadSession(id); err == nil {
		return session, nil
	}

	session, err := s.sql.GetUploadSession(id)
	if err != nil {
		return nil, err
	}
	s.cache.CacheUploadSession(session, sessionCacheTTL)
	return session, nil
}

// AddUploadChunk 原子登记一个已接收分块（可变状态，直写 SQL）
func (s *Store) AddUploadChunk(sessionID string, index int, size int64) (int, error) {
	return s.sql.AddUploadChunk(sessionID, index, size)
}

// ListUploadChunks 返回已接收分块索引（直读 SQL）
func (s *Store) ListUploadChunks(sessionID string) ([]int, error) {
	return s.sql.ListUploadChunks(sessionID)
}

// DeleteUploadSession 删除上传会话并失效缓存
func (s *Store) DeleteUploadSession(id string) error {
	if err := s.sql.DeleteUploadSession(id); err != nil {
		return err
	}
	s.cache.DeleteCachedUploadSession(id)
	return nil
}

// ListExpiredUploadSessions 列出过期会话
func (s *Store) ListExpiredUploadSessions(before time.Time) ([]domain.UploadSession, error) {
	return s.sql.ListExpiredUploadSessions(before)
}
