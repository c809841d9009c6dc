package memory

import (
	"sort"
	"time"

	"sync"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

// Store 使用内存保存全部业务数据，主要用于开发验证与测试。
type Store struct {
	mu sync.RWMutex

	users      map[string]*domain.User // userID -> user
	byEmail    map[string]string       // email -> userID
	byUsername map[string]string       // username -> userID

	boards map[string]*domain.Board
	lists  map[string]*domain.List
	cards  map[string]*domain.Card

	tags       map[string]*domain.Tag
	cardTags   map[string]map[string]time.Time // cardID -> tagID -> createdAt

	submissions map[string]*domain.Submission
	attachments map[string]*domain.Attachment

	// 上传会话：接收集合单独成表，AddUploadChunk 在写锁内完成
	// 读-改-写，保证并发分块到达不丢更新
	sessions      map[string]*domain.UploadSession
	sessionChunks map[string]map[int]int64 // sessionID -> chunkIndex -> size
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*domain.User),
		byEmail:       make(map[string]string),
		byUsername:    make(map[string]string),
		boards:        make(map[string]*domain.Board),
		lists:         make(map[string]*domain.List),
		cards:         make(map[string]*domain.Card),
		tags:          make(map[string]*domain.Tag),
		cardTags:      make(map[string]map[string]time.Time),
		submissions:   make(map[string]*domain.Submission),
		attachments:   make(map[string]*domain.Attachment),
		sessions:      make(map[string]*domain.UploadSession),
		sessionChunks: make(map[string]map[int]int64),
	}
}

// ========== User Repository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return storage.ErrEmailExists
	}
	if _, exists := s.byUsername[user.Username]; exists {
		return storage.ErrUsernameExists
	}

	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	s.byUsername[u.Username] = u.ID
	return nil
}

// GetUserByID 按 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// GetUserByUsername 按用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}

	// 维护唯一索引
	if old.Email != user.Email {
		delete(s.byEmail, old.Email)
		s.byEmail[user.Email] = user.ID
	}
	if old.Username != user.Username {
		delete(s.byUsername, old.Username)
		s.byUsername[user.Username] = user.ID
	}

	u := *user
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = &u
	return nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return nil
}

// ========== Board Repository ==========

// SaveBoard 保存看板（新建或更新）
func (s *Store) SaveBoard(board *domain.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := *board
	s.boards[b.ID] = &b
	return nil
}

// GetBoard 获取看板
func (s *Store) GetBoard(id string) (*domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	board, ok := s.boards[id]
	if !ok {
		return nil, storage.ErrBoardNotFound
	}
	b := *board
	return &b, nil
}

// ListBoardsByOwner 列出管理员的所有看板
func (s *Store) ListBoardsByOwner(ownerID string) ([]domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Board, 0)
	for _, b := range s.boards {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteBoard 删除看板及其列表、卡片
func (s *Store) DeleteBoard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[id]; !ok {
		return storage.ErrBoardNotFound
	}
	delete(s.boards, id)
	for listID, l := range s.lists {
		if l.BoardID == id {
			delete(s.lists, listID)
		}
	}
	for cardID, c := range s.cards {
		if c.BoardID == id {
			delete(s.cards, cardID)
			delete(s.cardTags, cardID)
		}
	}
	return nil
}

// SaveList 保存列表
func (s *Store) SaveList(list *domain.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := *list
	s.lists[l.ID] = &l
	return nil
}

// GetList 获取列表
func (s *Store) GetList(id string) (*domain.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[id]
	if !ok {
		return nil, storage.ErrListNotFound
	}
	l := *list
	return &l, nil
}

// ListListsByBoard 按位置升序列出看板的所有列表
func (s *Store) ListListsByBoard(boardID string) ([]domain.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.List, 0)
	for _, l := range s.lists {
		if l.BoardID == boardID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// DeleteList 删除列表及其卡片
func (s *Store) DeleteList(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[id]; !ok {
		return storage.ErrListNotFound
	}
	delete(s.lists, id)
	for cardID, c := range s.cards {
		if c.ListID == id {
			delete(s.cards, cardID)
			delete(s.cardTags, cardID)
		}
	}
	return nil
}

// SaveCard 保存卡片
func (s *Store) SaveCard(card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *card
	s.cards[c.ID] = &c
	return nil
}

// GetCard 获取卡片
func (s *Store) GetCard(id string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, storage.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

// ListCardsByList 按位置升序列出列表中的所有卡片
func (s *Store) ListCardsByList(listID string) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cardsOfListLocked(listID), nil
}

// cardsOfListLocked 返回列表内卡片（按位置升序），调用者需持有锁
func (s *Store) cardsOfListLocked(listID string) []domain.Card {
	out := make([]domain.Card, 0)
	for _, c := range s.cards {
		if c.ListID == listID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// MoveCard 移动卡片并重排受影响列表的兄弟卡片位置
//
// 源列表与目标列表的卡片位置在操作结束后都保持 0..n-1 连续，
// 不会出现重复或空洞。整个操作在写锁内完成。
func (s *Store) MoveCard(cardID, toListID string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return storage.ErrCardNotFound
	}
	toList, ok := s.lists[toListID]
	if !ok {
		return storage.ErrListNotFound
	}

	fromListID := card.ListID

	// 从源列表摘除后重排
	if fromListID != toListID {
		siblings := s.cardsOfListLocked(fromListID)
		pos := 0
		for _, sib := range siblings {
			if sib.ID == cardID {
				continue
			}
			s.cards[sib.ID].Position = pos
			pos++
		}
	}

	// 插入目标列表并重排
	targets := s.cardsOfListLocked(toListID)
	filtered := targets[:0]
	for _, t := range targets {
		if t.ID != cardID {
			filtered = append(filtered, t)
		}
	}
	if position < 0 {
		position = 0
	}
	if position > len(filtered) {
		position = len(filtered)
	}

	pos := 0
	for i, t := range filtered {
		if i == position {
			pos++
		}
		s.cards[t.ID].Position = pos
		pos++
	}

	card.ListID = toListID
	card.BoardID = toList.BoardID
	card.Position = position
	card.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteCard 删除卡片并重排其所在列表
func (s *Store) DeleteCard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[id]
	if !ok {
		return storage.ErrCardNotFound
	}
	listID := card.ListID
	delete(s.cards, id)
	delete(s.cardTags, id)

	// 删除后保持位置连续
	siblings := s.cardsOfListLocked(listID)
	for i, sib := range siblings {
		s.cards[sib.ID].Position = i
	}
	return nil
}

// ========== Tag Repository ==========

// CreateTag 创建标签
func (s *Store) CreateTag(tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *tag
	s.tags[t.ID] = &t
	return nil
}

// GetTag 获取标签
func (s *Store) GetTag(id string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, storage.ErrTagNotFound
	}
	t := *tag
	return &t, nil
}

// ListTagsByBoard 列出看板的所有标签
func (s *Store) ListTagsByBoard(boardID string) ([]domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tag, 0)
	for _, t := range s.tags {
		if t.BoardID == boardID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateTag 更新标签
func (s *Store) UpdateTag(tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[tag.ID]; !ok {
		return storage.ErrTagNotFound
	}
	t := *tag
	t.UpdatedAt = time.Now().UTC()
	s.tags[t.ID] = &t
	return nil
}

// DeleteTag 删除标签及其卡片关联
func (s *Store) DeleteTag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[id]; !ok {
		return storage.ErrTagNotFound
	}
	delete(s.tags, id)
	for cardID := range s.cardTags {
		delete(s.cardTags[cardID], id)
	}
	return nil
}

// AddCardTag 为卡片添加标签
func (s *Store) AddCardTag(cardID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[cardID]; !ok {
		return storage.ErrCardNotFound
	}
	if _, ok := s.tags[tagID]; !ok {
		return storage.ErrTagNotFound
	}
	if s.cardTags[cardID] == nil {
		s.cardTags[cardID] = make(map[string]time.Time)
	}
	s.cardTags[cardID][tagID] = time.Now().UTC()
	return nil
}

// RemoveCardTag 移除卡片标签
func (s *Store) RemoveCardTag(cardID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tags, ok := s.cardTags[cardID]; ok {
		delete(tags, tagID)
	}
	return nil
}

// GetCardTags 获取卡片的所有标签
func (s *Store) GetCardTags(cardID string) ([]domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tag, 0)
	for tagID := range s.cardTags[cardID] {
		if tag, ok := s.tags[tagID]; ok {
			out = append(out, *tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ========== Submission Repository ==========

// SaveSubmission 保存客户提交
func (s *Store) SaveSubmission(submission *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := *submission
	s.submissions[sub.ID] = &sub
	return nil
}

// GetSubmission 获取客户提交
func (s *Store) GetSubmission(id string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submission, ok := s.submissions[id]
	if !ok {
		return nil, storage.ErrSubmissionNotFound
	}
	sub := *submission
	return &sub, nil
}

// ListSubmissionsByClient 列出客户的所有提交
func (s *Store) ListSubmissionsByClient(clientID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if sub.ClientID == clientID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListSubmissions 列出提交（可按状态过滤，管理员视图）
func (s *Store) ListSubmissions(status *domain.SubmissionStatus) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if status != nil && sub.Status != *status {
			continue
		}
		out = append(out, *sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ========== Attachment Repository ==========

// CreateAttachment 创建附件记录
func (s *Store) CreateAttachment(attachment *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *attachment
	s.attachments[a.ID] = &a
	return nil
}

// GetAttachment 获取附件记录
func (s *Store) GetAttachment(id string) (*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attachment, ok := s.attachments[id]
	if !ok {
		return nil, storage.ErrAttachmentNotFound
	}
	a := *attachment
	return &a, nil
}

// ListAttachmentsByParent 列出父实体的所有附件
func (s *Store) ListAttachmentsByParent(kind domain.ParentKind, parentID string) ([]domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Attachment, 0)
	for _, a := range s.attachments {
		if a.ParentKind == kind && a.ParentID == parentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateAttachmentTranscription 更新附件转写字段
//
// 附件其余字段（FileURL、FileSize 等）创建后不可变，这里刻意只
// 暴露转写字段的写入口。
func (s *Store) UpdateAttachmentTranscription(id string, status domain.TranscriptionStatus, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attachment, ok := s.attachments[id]
	if !ok {
		return storage.ErrAttachmentNotFound
	}
	attachment.TranscriptionStatus = status
	if text != "" {
		attachment.Transcription = text
	}
	attachment.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteAttachment 删除附件记录
func (s *Store) DeleteAttachment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return storage.ErrAttachmentNotFound
	}
	delete(s.attachments, id)
	return nil
}

// ========== Upload Session Repository ==========

// CreateUploadSession 创建上传会话
func (s *Store) CreateUploadSession(session *domain.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := *session
	s.sessions[sess.ID] = &sess
	s.sessionChunks[sess.ID] = make(map[int]int64)
	return nil
}

// GetUploadSession 获取上传会话
func (s *Store) GetUploadSession(id string) (*domain.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	sess := *session
	return &sess, nil
}

// AddUploadChunk 原子登记一个已接收分块，返回登记后的分块总数
//
// 同一索引重复登记只覆盖大小、不重复计数，分块集合只增不减。
func (s *Store) AddUploadChunk(sessionID string, index int, size int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return 0, storage.ErrSessionNotFound
	}
	chunks := s.sessionChunks[sessionID]
	chunks[index] = size
	return len(chunks), nil
}

// ListUploadChunks 返回已接收分块索引（升序）
func (s *Store) ListUploadChunks(sessionID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, ok := s.sessionChunks[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	out := make([]int, 0, len(chunks))
	for idx := range chunks {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

// DeleteUploadSession 删除会话及其分块登记
func (s *Store) DeleteUploadSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return storage.ErrSessionNotFound
	}
	delete(s.sessions, id)
	delete(s.sessionChunks, id)
	return nil
}

// ListExpiredUploadSessions 返回在 before 之前过期的会话
func (s *Store) ListExpiredUploadSessions(before time.Time) ([]domain.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UploadSession, 0)
	for _, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			out = append(out, *sess)
		}
	}
	return out, nil
}

// Health 内存存储始终可用
func (s *Store) Health() error {
	return nil
}
