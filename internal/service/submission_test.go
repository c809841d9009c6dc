package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/backend/internal/domain"
)

func newSubmissionTestEnv(t *testing.T) (*SubmissionService, *boardTestEnv) {
	t.Helper()

	boardEnv := newBoardTestEnv(t)
	svc := NewSubmissionService(boardEnv.store, zap.NewNop())
	svc.SetEventPublisher(boardEnv.events)
	return svc, boardEnv
}

func TestCreateSubmission(t *testing.T) {
	svc, env := newSubmissionTestEnv(t)

	deadline := time.Now().UTC().Add(72 * time.Hour)
	submission, err := svc.Create("client-1", CreateSubmissionInput{
		Title:    "婚礼视频剪辑",
		Notes:    "素材约 40 分钟，希望剪成 5 分钟精华",
		Urgency:  domain.UrgencyHigh,
		Deadline: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusNew, submission.Status)
	assert.Equal(t, domain.UrgencyHigh, submission.Urgency)

	// 紧急程度缺省为 normal
	plain, err := svc.Create("client-1", CreateSubmissionInput{Title: "无标注"})
	require.NoError(t, err)
	assert.Equal(t, domain.UrgencyNormal, plain.Urgency)

	_, err = svc.Create("client-1", CreateSubmissionInput{Title: "bad", Urgency: "asap"})
	assert.ErrorIs(t, err, ErrInvalidUrgency)

	require.Len(t, env.events.byType(EventSubmissionCreated), 2)
}

func TestSubmissionVisibility(t *testing.T) {
	svc, _ := newSubmissionTestEnv(t)

	mine, err := svc.Create("client-1", CreateSubmissionInput{Title: "我的提交"})
	require.NoError(t, err)
	_, err = svc.Create("client-2", CreateSubmissionInput{Title: "别人的提交"})
	require.NoError(t, err)

	// 客户只能看自己的
	_, err = svc.Get(mine.ID, "client-2", false)
	assert.ErrorIs(t, err, ErrNotSubmissionOwner)
	got, err := svc.Get(mine.ID, "client-1", false)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// 管理员全可见
	_, err = svc.Get(mine.ID, "admin-1", true)
	assert.NoError(t, err)

	list, err := svc.ListForClient("client-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	all, err := svc.ListAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := domain.SubmissionStatusNew
	filtered, err := svc.ListAll(&status)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	bad := domain.SubmissionStatus("bogus")
	_, err = svc.ListAll(&bad)
	assert.ErrorIs(t, err, ErrInvalidSubmissionStatus)
}

func TestUpdateSubmissionStatus(t *testing.T) {
	svc, _ := newSubmissionTestEnv(t)

	submission, err := svc.Create("client-1", CreateSubmissionInput{Title: "审一下"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(submission.ID, domain.SubmissionStatusInReview)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusInReview, updated.Status)

	// 晋升状态只能由 Promote 进入
	_, err = svc.UpdateStatus(submission.ID, domain.SubmissionStatusPromoted)
	assert.ErrorIs(t, err, ErrInvalidSubmissionStatus)

	_, err = svc.UpdateStatus("no-such", domain.SubmissionStatusArchived)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestPromoteSubmission(t *testing.T) {
	svc, env := newSubmissionTestEnv(t)
	_, listA, _ := env.setupLists(t)

	_, err := env.cards.CreateCard(listA, CreateCardInput{Title: "已有卡"})
	require.NoError(t, err)

	deadline := time.Now().UTC().Add(48 * time.Hour)
	submission, err := svc.Create("client-1", CreateSubmissionInput{
		Title:    "播客混音",
		Notes:    "两轨人声加背景音乐",
		Deadline: &deadline,
	})
	require.NoError(t, err)

	card, err := svc.Promote(submission.ID, listA)
	require.NoError(t, err)
	assert.Equal(t, "播客混音", card.Title)
	assert.Equal(t, "两轨人声加背景音乐", card.Description)
	assert.Equal(t, 1, card.Position, "promoted card lands at the end of the list")
	assert.Equal(t, submission.ID, card.SubmissionID)
	require.NotNil(t, card.DueDate)

	promoted, err := svc.Get(submission.ID, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusPromoted, promoted.Status)
	assert.Equal(t, card.ID, promoted.PromotedCardID)

	// 不允许重复晋升，也不允许改回其它状态
	_, err = svc.Promote(submission.ID, listA)
	assert.ErrorIs(t, err, ErrAlreadyPromoted)
	_, err = svc.UpdateStatus(submission.ID, domain.SubmissionStatusArchived)
	assert.ErrorIs(t, err, ErrAlreadyPromoted)

	_, err = svc.Promote("no-such", listA)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	other, err := svc.Create("client-1", CreateSubmissionInput{Title: "x"})
	require.NoError(t, err)
	_, err = svc.Promote(other.ID, "no-such-list")
	assert.ErrorIs(t, err, ErrListNotFound)

	require.Len(t, env.events.byType(EventSubmissionPromoted), 1)
}
