// Package sql 提供 SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）。
package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

// Store SQL 数据库存储实现
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建SQL数据库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	if driverName == "mysql" {
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	} else {
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	return &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}, nil
}

// Migrate 执行数据库自动迁移
func (s *Store) Migrate() error {
	return s.gormDB.AutoMigrate(
		&domain.User{},
		&domain.Board{},
		&domain.List{},
		&domain.Card{},
		&domain.Tag{},
		&domain.CardTag{},
		&domain.Submission{},
		&domain.Attachment{},
		&domain.UploadSession{},
		&domain.UploadChunk{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// Health 检查数据库连通性
func (s *Store) Health() error {
	return s.db.Ping()
}

// DB 返回底层 *sql.DB，供健康检查与指标采集使用
func (s *Store) DB() *sql.DB {
	return s.db
}

// ---- 用户 ----

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	var count int64
	if err := s.gormDB.Model(&domain.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrEmailExists
	}
	if err := s.gormDB.Model(&domain.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrUsernameExists
	}
	return s.gormDB.Create(user).Error
}

// GetUserByID 按 ID 查询用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	if err := s.gormDB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 按邮箱查询用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := s.gormDB.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 按用户名查询用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	var user domain.User
	if err := s.gormDB.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	result := s.gormDB.Model(&domain.User{}).Where("id = ?", user.ID).Updates(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	now := time.Now().UTC()
	return s.gormDB.Model(&domain.User{}).Where("id = ?", userID).
		Update("last_login_at", now).Error
}

// ---- 看板 ----

// SaveBoard 保存看板
func (s *Store) SaveBoard(board *domain.Board) error {
	return s.gormDB.Save(board).Error
}

// GetBoard 查询看板
func (s *Store) GetBoard(id string) (*domain.Board, error) {
	var board domain.Board
	if err := s.gormDB.First(&board, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

// ListBoardsByOwner 列出某管理员的全部看板
func (s *Store) ListBoardsByOwner(ownerID string) ([]domain.Board, error) {
	var boards []domain.Board
	err := s.gormDB.Where("owner_id = ?", ownerID).
		Order("created_at ASC").Find(&boards).Error
	return boards, err
}

// DeleteBoard 删除看板及其列表、卡片、标签
func (s *Store) DeleteBoard(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Board{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrBoardNotFound
		}

		var cardIDs []string
		if err := tx.Model(&domain.Card{}).Where("board_id = ?", id).Pluck("id", &cardIDs).Error; err != nil {
			return err
		}
		if len(cardIDs) > 0 {
			if err := tx.Delete(&domain.CardTag{}, "card_id IN ?", cardIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&domain.Card{}, "board_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.List{}, "board_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Tag{}, "board_id = ?", id).Error
	})
}

// ---- 列表 ----

// SaveList 保存列表
func (s *Store) SaveList(list *domain.List) error {
	return s.gormDB.Save(list).Error
}

// GetList 查询列表
func (s *Store) GetList(id string) (*domain.List, error) {
	var list domain.List
	if err := s.gormDB.First(&list, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

// ListListsByBoard 按位置升序列出看板的列表
func (s *Store) ListListsByBoard(boardID string) ([]domain.List, error) {
	var lists []domain.List
	err := s.gormDB.Where("board_id = ?", boardID).
		Order("position ASC").Find(&lists).Error
	return lists, err
}

// DeleteList 删除列表及其卡片，并重排同看板剩余列表的位置
func (s *Store) DeleteList(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var list domain.List
		if err := tx.First(&list, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrListNotFound
			}
			return err
		}

		var cardIDs []string
		if err := tx.Model(&domain.Card{}).Where("list_id = ?", id).Pluck("id", &cardIDs).Error; err != nil {
			return err
		}
		if len(cardIDs) > 0 {
			if err := tx.Delete(&domain.CardTag{}, "card_id IN ?", cardIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&domain.Card{}, "list_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.List{}, "id = ?", id).Error; err != nil {
			return err
		}

		return renumberLists(tx, list.BoardID)
	})
}

// renumberLists 重排看板内列表位置为连续的 0..n-1
func renumberLists(tx *gorm.DB, boardID string) error {
	var lists []domain.List
	if err := tx.Where("board_id = ?", boardID).Order("position ASC").Find(&lists).Error; err != nil {
		return err
	}
	for i, list := range lists {
		if list.Position != i {
			if err := tx.Model(&domain.List{}).Where("id = ?", list.ID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// ---- 卡片 ----

// SaveCard 保存卡片
func (s *Store) SaveCard(card *domain.Card) error {
	return s.gormDB.Save(card).Error
}

// GetCard 查询卡片
func (s *Store) GetCard(id string) (*domain.Card, error) {
	var card domain.Card
	if err := s.gormDB.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ListCardsByList 按位置升序列出列表的卡片
func (s *Store) ListCardsByList(listID string) ([]domain.Card, error) {
	var cards []domain.Card
	err := s.gormDB.Where("list_id = ?", listID).
		Order("position ASC").Find(&cards).Error
	return cards, err
}

// MoveCard 移动卡片到目标列表的目标位置
//
// 在单个事务内完成：卡片从源列表摘除后源列表兄弟卡片重排，目标
// 列表在插入位置留出空位后统一重排，两个列表的位置都保持连续的
// 0..n-1。目标位置超出范围时夹取到列表末尾。
func (s *Store) MoveCard(cardID, toListID string, position int) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var card domain.Card
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&card, "id = ?", cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrCardNotFound
			}
			return err
		}

		var target domain.List
		if err := tx.First(&target, "id = ?", toListID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrListNotFound
			}
			return err
		}

		fromListID := card.ListID

		// 目标列表现有卡片（同列表移动时不含被移动卡片）
		var siblings []domain.Card
		if err := tx.Where("list_id = ? AND id <> ?", toListID, cardID).
			Order("position ASC").Find(&siblings).Error; err != nil {
			return err
		}

		if position > len(siblings) {
			position = len(siblings)
		}

		// 更新被移动卡片
		if err := tx.Model(&domain.Card{}).Where("id = ?", cardID).Updates(map[string]interface{}{
			"list_id":    toListID,
			"board_id":   target.BoardID,
			"position":   position,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		// 目标列表重排：插入位置之后的卡片顺延
		for i, sibling := range siblings {
			want := i
			if i >= position {
				want = i + 1
			}
			if sibling.Position != want {
				if err := tx.Model(&domain.Card{}).Where("id = ?", sibling.ID).
					Update("position", want).Error; err != nil {
					return err
				}
			}
		}

		// 跨列表移动时重排源列表
		if fromListID != toListID {
			if err := renumberCards(tx, fromListID); err != nil {
				return err
			}
		}
		return nil
	})
}

// renumberCards 重排列表内卡片位置为连续的 0..n-1
func renumberCards(tx *gorm.DB, listID string) error {
	var cards []domain.Card
	if err := tx.Where("list_id = ?", listID).Order("position ASC").Find(&cards).Error; err != nil {
		return err
	}
	for i, card := range cards {
		if card.Position != i {
			if err := tx.Model(&domain.Card{}).Where("id = ?", card.ID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteCard 删除卡片并重排兄弟卡片
func (s *Store) DeleteCard(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		var card domain.Card
		if err := tx.First(&card, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrCardNotFound
			}
			return err
		}

		if err := tx.Delete(&domain.CardTag{}, "card_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Card{}, "id = ?", id).Error; err != nil {
			return err
		}
		return renumberCards(tx, card.ListID)
	})
}

// ---- 标签 ----

// CreateTag 创建标签
func (s *Store) CreateTag(tag *domain.Tag) error {
	return s.gormDB.Create(tag).Error
}

// GetTag 查询标签
func (s *Store) GetTag(id string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := s.gormDB.First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// ListTagsByBoard 列出看板的全部标签
func (s *Store) ListTagsByBoard(boardID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.gormDB.Where("board_id = ?", boardID).
		Order("created_at ASC").Find(&tags).Error
	return tags, err
}

// UpdateTag 更新标签
func (s *Store) UpdateTag(tag *domain.Tag) error {
	result := s.gormDB.Model(&domain.Tag{}).Where("id = ?", tag.ID).Updates(tag)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrTagNotFound
	}
	return nil
}

// DeleteTag 删除标签及其卡片关联
func (s *Store) DeleteTag(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.CardTag{}, "tag_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Tag{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrTagNotFound
		}
		return nil
	})
}

// AddCardTag 给卡片贴标签，重复贴同一标签幂等
func (s *Store) AddCardTag(cardID, tagID string) error {
	cardTag := &domain.CardTag{
		CardID:    cardID,
		TagID:     tagID,
		CreatedAt: time.Now().UTC(),
	}
	return s.gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(cardTag).Error
}

// RemoveCardTag 移除卡片上的标签
func (s *Store) RemoveCardTag(cardID, tagID string) error {
	return s.gormDB.Delete(&domain.CardTag{}, "card_id = ? AND tag_id = ?", cardID, tagID).Error
}

// GetCardTags 返回卡片上的全部标签
func (s *Store) GetCardTags(cardID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.gormDB.
		Joins("JOIN card_tags ON card_tags.tag_id = tags.id").
		Where("card_tags.card_id = ?", cardID).
		Order("tags.created_at ASC").
		Find(&tags).Error
	return tags, err
}

// ---- 提交 ----

// SaveSubmission 保存提交
func (s *Store) SaveSubmission(submission *domain.Submission) error {
	return s.gormDB.Save(submission).Error
}

// GetSubmission 查询提交
func (s *Store) GetSubmission(id string) (*domain.Submission, error) {
	var submission domain.Submission
	if err := s.gormDB.First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// ListSubmissionsByClient 列出某客户的全部提交，新的在前
func (s *Store) ListSubmissionsByClient(clientID string) ([]domain.Submission, error) {
	var submissions []domain.Submission
	err := s.gormDB.Where("client_id = ?", clientID).
		Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

// ListSubmissions 按状态筛选全部提交，status 为 nil 时返回所有
func (s *Store) ListSubmissions(status *domain.SubmissionStatus) ([]domain.Submission, error) {
	query := s.gormDB.Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var submissions []domain.Submission
	err := query.Find(&submissions).Error
	return submissions, err
}

// ---- 附件 ----

// CreateAttachment 创建附件记录
func (s *Store) CreateAttachment(attachment *domain.Attachment) error {
	return s.gormDB.Create(attachment).Error
}

// GetAttachment 查询附件
func (s *Store) GetAttachment(id string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := s.gormDB.First(&attachment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAttachmentNotFound
		}
		return nil, err
	}
	return &attachment, nil
}

// ListAttachmentsByParent 列出父实体下的全部附件
func (s *Store) ListAttachmentsByParent(kind domain.ParentKind, parentID string) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := s.gormDB.Where("parent_kind = ? AND parent_id = ?", kind, parentID).
		Order("created_at ASC").Find(&attachments).Error
	return attachments, err
}

// UpdateAttachmentTranscription 更新附件转写字段（附件唯一的可变路径）
func (s *Store) UpdateAttachmentTranscription(id string, status domain.TranscriptionStatus, text string) error {
	result := s.gormDB.Model(&domain.Attachment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"transcription_status": status,
		"transcription":        text,
		"updated_at":           time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAttachmentNotFound
	}
	return nil
}

// DeleteAttachment 删除附件记录
func (s *Store) DeleteAttachment(id string) error {
	result := s.gormDB.Delete(&domain.Attachment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAttachmentNotFound
	}
	return nil
}

// ---- 上传会话 ----

// CreateUploadSession 创建上传会话
func (s *Store) CreateUploadSession(session *domain.UploadSession) error {
	return s.gormDB.Create(session).Error
}

// GetUploadSession 查询上传会话
func (s *Store) GetUploadSession(id string) (*domain.UploadSession, error) {
	var session domain.UploadSession
	if err := s.gormDB.First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// AddUploadChunk 原子登记一个已接收分块，返回当前已接收分块数
//
// (session_id, chunk_index) 上的唯一索引保证并发到达的同一分块
// 只登记一次；重复登记走 upsert 更新大小，计数不变。
func (s *Store) AddUploadChunk(sessionID string, index int, size int64) (int, error) {
	var count int64
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.UploadSession{}).Where("id = ?", sessionID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return storage.ErrSessionNotFound
		}

		chunk := &domain.UploadChunk{
			SessionID:  sessionID,
			ChunkIndex: index,
			Size:       size,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "chunk_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"size"}),
		}).Create(chunk).Error; err != nil {
			return err
		}

		return tx.Model(&domain.UploadChunk{}).Where("session_id = ?", sessionID).Count(&count).Error
	})
	return int(count), err
}

// ListUploadChunks 按索引升序返回已接收分块索引
func (s *Store) ListUploadChunks(sessionID string) ([]int, error) {
	var exists int64
	if err := s.gormDB.Model(&domain.UploadSession{}).Where("id = ?", sessionID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, storage.ErrSessionNotFound
	}

	var indexes []int
	err := s.gormDB.Model(&domain.UploadChunk{}).Where("session_id = ?", sessionID).
		Order("chunk_index ASC").Pluck("chunk_index", &indexes).Error
	return indexes, err
}

// DeleteUploadSession 删除上传会话及其分块登记
func (s *Store) DeleteUploadSession(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.UploadSession{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrSessionNotFound
		}
		return tx.Delete(&domain.UploadChunk{}, "session_id = ?", id).Error
	})
}

// ListExpiredUploadSessions 列出过期时间早于 before 的会话
func (s *Store) ListExpiredUploadSessions(before time.Time) ([]domain.UploadSession, error) {
	var sessions []domain.UploadSession
	err := s.gormDB.Where("expires_at < ?", before).Find(&sessions).Error
	return sessions, err
}
