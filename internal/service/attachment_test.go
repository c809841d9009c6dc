package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/backend/internal/blob"
	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage/memory"
)

func newAttachmentTestEnv(t *testing.T) (*AttachmentService, *memory.Store, *blob.MemoryStore, *capturePublisher) {
	t.Helper()

	store := memory.NewStore()
	blobs := blob.NewMemoryStore("http://blob.test")
	events := &capturePublisher{}

	svc := NewAttachmentService(store, blobs, zap.NewNop())
	svc.SetEventPublisher(events)

	now := time.Now().UTC()
	require.NoError(t, store.SaveSubmission(&domain.Submission{
		ID: "sub-1", ClientID: "client-1", Title: "转写测试",
		Status: domain.SubmissionStatusNew, CreatedAt: now, UpdatedAt: now,
	}))

	return svc, store, blobs, events
}

func TestLinkDirectUpload(t *testing.T) {
	svc, _, blobs, events := newAttachmentTestEnv(t)
	ctx := context.Background()

	_, err := blobs.Put(ctx, "direct/abc_memo.mp3", strings.NewReader("audio-bytes"), 11, "audio/mpeg")
	require.NoError(t, err)

	attachment, err := svc.Link(ctx, LinkInput{
		ParentKind: domain.ParentKindSubmission,
		ParentID:   "sub-1",
		ObjectKey:  "direct/abc_memo.mp3",
		FileName:   "memo.mp3",
		FileSize:   11,
		MimeType:   "audio/mpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), attachment.FileSize)
	assert.Equal(t, domain.FileTypeAudio, attachment.FileType)
	assert.Equal(t, domain.TranscriptionPending, attachment.TranscriptionStatus)
	assert.Equal(t, blobs.PublicURL("direct/abc_memo.mp3"), attachment.FileURL)

	require.Len(t, events.byType(EventAttachmentCreated), 1)
}

func TestLinkRejectsMissingObject(t *testing.T) {
	svc, _, _, _ := newAttachmentTestEnv(t)

	_, err := svc.Link(context.Background(), LinkInput{
		ParentKind: domain.ParentKindSubmission,
		ParentID:   "sub-1",
		ObjectKey:  "direct/never-uploaded",
		FileName:   "ghost.bin",
		FileSize:   10,
		MimeType:   "application/octet-stream",
	})
	assert.ErrorIs(t, err, ErrObjectNotUploaded)
}

func TestLinkRejectsSizeMismatch(t *testing.T) {
	svc, store, blobs, _ := newAttachmentTestEnv(t)
	ctx := context.Background()

	_, err := blobs.Put(ctx, "direct/short", strings.NewReader("abc"), 3, "application/octet-stream")
	require.NoError(t, err)

	_, err = svc.Link(ctx, LinkInput{
		ParentKind: domain.ParentKindSubmission,
		ParentID:   "sub-1",
		ObjectKey:  "direct/short",
		FileName:   "short.bin",
		FileSize:   999,
		MimeType:   "application/octet-stream",
	})
	assert.ErrorIs(t, err, ErrObjectSizeMismatch)

	// 校验失败不落记录
	list, err := store.ListAttachmentsByParent(domain.ParentKindSubmission, "sub-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLinkRejectsUnknownParent(t *testing.T) {
	svc, _, blobs, _ := newAttachmentTestEnv(t)
	ctx := context.Background()

	_, err := blobs.Put(ctx, "direct/orphan", strings.NewReader("abc"), 3, "application/octet-stream")
	require.NoError(t, err)

	_, err = svc.Link(ctx, LinkInput{
		ParentKind: domain.ParentKindCard,
		ParentID:   "no-such-card",
		ObjectKey:  "direct/orphan",
		FileName:   "orphan.bin",
		FileSize:   3,
		MimeType:   "application/octet-stream",
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestUpdateTranscription(t *testing.T) {
	svc, store, _, events := newAttachmentTestEnv(t)

	now := time.Now().UTC()
	require.NoError(t, store.CreateAttachment(&domain.Attachment{
		ID: "att-1", ParentKind: domain.ParentKindSubmission, ParentID: "sub-1",
		FileName: "memo.mp3", FileURL: "http://blob.test/x", FileType: domain.FileTypeAudio,
		FileSize: 11, MimeType: "audio/mpeg",
		TranscriptionStatus: domain.TranscriptionPending,
		CreatedAt:           now, UpdatedAt: now,
	}))

	att, err := svc.UpdateTranscription("att-1", UpdateTranscriptionInput{
		Status: domain.TranscriptionCompleted,
		Text:   "会议纪要全文",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptionCompleted, att.TranscriptionStatus)
	assert.Equal(t, "会议纪要全文", att.Transcription)

	require.Len(t, events.byType(EventTranscriptionUpdated), 1)

	_, err = svc.UpdateTranscription("att-1", UpdateTranscriptionInput{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidTranscriptionStatus)

	_, err = svc.UpdateTranscription("no-such", UpdateTranscriptionInput{Status: domain.TranscriptionFailed})
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestDeleteAttachmentReclaimsObjects(t *testing.T) {
	svc, store, blobs, _ := newAttachmentTestEnv(t)
	ctx := context.Background()

	fileURL, err := blobs.Put(ctx, "submission/sub-1/clip.mp4", strings.NewReader("video"), 5, "video/mp4")
	require.NoError(t, err)
	thumbURL, err := blobs.Put(ctx, "submission/sub-1/thumb_clip.jpg", strings.NewReader("jpg"), 3, "image/jpeg")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.CreateAttachment(&domain.Attachment{
		ID: "att-1", ParentKind: domain.ParentKindSubmission, ParentID: "sub-1",
		FileName: "clip.mp4", FileURL: fileURL, ThumbnailURL: thumbURL,
		FileType: domain.FileTypeVideo, FileSize: 5, MimeType: "video/mp4",
		CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, svc.Delete(ctx, "att-1"))

	_, err = svc.Get("att-1")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	_, err = blobs.Stat(ctx, "submission/sub-1/clip.mp4")
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)
	_, err = blobs.Stat(ctx, "submission/sub-1/thumb_clip.jpg")
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "att-1"), ErrAttachmentNotFound)
}
