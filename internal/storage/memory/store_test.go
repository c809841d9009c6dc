package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

func newSession(id string, expiresAt time.Time) *domain.UploadSession {
	now := time.Now().UTC()
	return &domain.UploadSession{
		ID:           id,
		OwnerID:      "client-1",
		ParentKind:   domain.ParentKindSubmission,
		ParentID:     "sub-1",
		FileName:     "clip.mp4",
		DeclaredSize: 100,
		MimeType:     "video/mp4",
		ChunkSize:    10,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}
}

func TestUserUniqueness(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.CreateUser(&domain.User{
		ID: "u1", Email: "a@example.com", Username: "alpha", Role: domain.RoleClient,
	}))

	err := s.CreateUser(&domain.User{ID: "u2", Email: "a@example.com", Username: "beta"})
	assert.ErrorIs(t, err, storage.ErrEmailExists)

	err = s.CreateUser(&domain.User{ID: "u3", Email: "b@example.com", Username: "alpha"})
	assert.ErrorIs(t, err, storage.ErrUsernameExists)

	byEmail, err := s.GetUserByEmail("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	byName, err := s.GetUserByUsername("alpha")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)
}

func TestAddUploadChunkIdempotent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateUploadSession(newSession("sess-1", time.Now().Add(time.Hour))))

	count, err := s.AddUploadChunk("sess-1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.AddUploadChunk("sess-1", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// 同一索引重复登记只覆盖大小
	count, err = s.AddUploadChunk("sess-1", 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	chunks, err := s.ListUploadChunks("sess-1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, chunks)

	_, err = s.AddUploadChunk("no-such", 0, 10)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestAddUploadChunkConcurrent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateUploadSession(newSession("sess-1", time.Now().Add(time.Hour))))

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := s.AddUploadChunk("sess-1", idx, 10)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	chunks, err := s.ListUploadChunks("sess-1")
	require.NoError(t, err)
	assert.Len(t, chunks, workers)
}

func TestDeleteUploadSession(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateUploadSession(newSession("sess-1", time.Now().Add(time.Hour))))
	_, err := s.AddUploadChunk("sess-1", 0, 10)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUploadSession("sess-1"))

	_, err = s.GetUploadSession("sess-1")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	_, err = s.ListUploadChunks("sess-1")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	assert.ErrorIs(t, s.DeleteUploadSession("sess-1"), storage.ErrSessionNotFound)
}

func TestListExpiredUploadSessions(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	require.NoError(t, s.CreateUploadSession(newSession("expired-1", now.Add(-time.Hour))))
	require.NoError(t, s.CreateUploadSession(newSession("expired-2", now.Add(-time.Minute))))
	require.NoError(t, s.CreateUploadSession(newSession("live-1", now.Add(time.Hour))))

	expired, err := s.ListExpiredUploadSessions(now)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	for _, sess := range expired {
		assert.NotEqual(t, "live-1", sess.ID)
	}
}

func TestMoveCardRenumbering(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SaveBoard(&domain.Board{ID: "board-1", OwnerID: "admin-1", Title: "b"}))
	require.NoError(t, s.SaveList(&domain.List{ID: "list-a", BoardID: "board-1", Title: "A", Position: 0}))
	require.NoError(t, s.SaveList(&domain.List{ID: "list-b", BoardID: "board-1", Title: "B", Position: 1}))

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.SaveCard(&domain.Card{
			ID: id, ListID: "list-a", BoardID: "board-1", Title: id, Position: i,
		}))
	}

	require.NoError(t, s.MoveCard("c1", "list-b", 0))

	moved, err := s.GetCard("c1")
	require.NoError(t, err)
	assert.Equal(t, "list-b", moved.ListID)
	assert.Equal(t, "board-1", moved.BoardID)
	assert.Equal(t, 0, moved.Position)

	// 源列表位置塌缩为 0..n-1
	remaining, err := s.ListCardsByList("list-a")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for i, c := range remaining {
		assert.Equal(t, i, c.Position)
	}

	assert.ErrorIs(t, s.MoveCard("no-such", "list-b", 0), storage.ErrCardNotFound)
	assert.ErrorIs(t, s.MoveCard("c1", "no-such", 0), storage.ErrListNotFound)
}

func TestCascadingDeletes(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SaveBoard(&domain.Board{ID: "board-1", OwnerID: "admin-1", Title: "b"}))
	require.NoError(t, s.SaveList(&domain.List{ID: "list-a", BoardID: "board-1", Title: "A"}))
	require.NoError(t, s.SaveCard(&domain.Card{ID: "c1", ListID: "list-a", BoardID: "board-1", Title: "c"}))
	require.NoError(t, s.CreateTag(&domain.Tag{ID: "t1", BoardID: "board-1", Name: "加急", Color: "#ff0000"}))
	require.NoError(t, s.AddCardTag("c1", "t1"))

	require.NoError(t, s.DeleteBoard("board-1"))

	_, err := s.GetList("list-a")
	assert.ErrorIs(t, err, storage.ErrListNotFound)
	_, err = s.GetCard("c1")
	assert.ErrorIs(t, err, storage.ErrCardNotFound)

	tags, err := s.GetCardTags("c1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestUpdateAttachmentTranscription(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	require.NoError(t, s.CreateAttachment(&domain.Attachment{
		ID: "att-1", ParentKind: domain.ParentKindCard, ParentID: "card-1",
		FileName: "memo.mp3", FileURL: "http://x/y", FileType: domain.FileTypeAudio,
		FileSize: 10, MimeType: "audio/mpeg",
		TranscriptionStatus: domain.TranscriptionPending,
		CreatedAt:           now, UpdatedAt: now,
	}))

	require.NoError(t, s.UpdateAttachmentTranscription("att-1", domain.TranscriptionCompleted, "全文"))

	att, err := s.GetAttachment("att-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptionCompleted, att.TranscriptionStatus)
	assert.Equal(t, "全文", att.Transcription)

	// 状态更新不清空已有文本
	require.NoError(t, s.UpdateAttachmentTranscription("att-1", domain.TranscriptionFailed, ""))
	att, err = s.GetAttachment("att-1")
	require.NoError(t, err)
	assert.Equal(t, "全文", att.Transcription)

	err = s.UpdateAttachmentTranscription("no-such", domain.TranscriptionFailed, "")
	assert.ErrorIs(t, err, storage.ErrAttachmentNotFound)
}
