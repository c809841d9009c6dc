package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/backend/internal/storage/memory"
)

type boardTestEnv struct {
	boards *BoardService
	cards  *CardService
	tags   *TagService
	store  *memory.Store
	events *capturePublisher
}

func newBoardTestEnv(t *testing.T) *boardTestEnv {
	t.Helper()

	store := memory.NewStore()
	events := &capturePublisher{}

	cards := NewCardService(store, zap.NewNop())
	cards.SetEventPublisher(events)

	return &boardTestEnv{
		boards: NewBoardService(store, zap.NewNop()),
		cards:  cards,
		tags:   NewTagService(store, zap.NewNop()),
		store:  store,
		events: events,
	}
}

// setupLists 建一个看板和两个列表，返回 (boardID, listA, listB)
func (env *boardTestEnv) setupLists(t *testing.T) (string, string, string) {
	t.Helper()

	board, err := env.boards.CreateBoard("admin-1", CreateBoardInput{Title: "制作排期"})
	require.NoError(t, err)
	listA, err := env.boards.CreateList(board.ID, CreateListInput{Title: "待处理"})
	require.NoError(t, err)
	listB, err := env.boards.CreateList(board.ID, CreateListInput{Title: "进行中"})
	require.NoError(t, err)
	return board.ID, listA.ID, listB.ID
}

func (env *boardTestEnv) cardTitles(t *testing.T, listID string) []string {
	t.Helper()
	cards, err := env.cards.ListCards(listID)
	require.NoError(t, err)
	titles := make([]string, len(cards))
	for i, c := range cards {
		require.Equal(t, i, c.Position, "positions must stay contiguous")
		titles[i] = c.Title
	}
	return titles
}

func TestCreateCardAppendsToEnd(t *testing.T) {
	env := newBoardTestEnv(t)
	_, listA, _ := env.setupLists(t)

	for _, title := range []string{"a", "b", "c"} {
		card, err := env.cards.CreateCard(listA, CreateCardInput{Title: title})
		require.NoError(t, err)
		assert.NotEmpty(t, card.ID)
	}

	assert.Equal(t, []string{"a", "b", "c"}, env.cardTitles(t, listA))

	_, err := env.cards.CreateCard("no-such-list", CreateCardInput{Title: "x"})
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestMoveCardWithinList(t *testing.T) {
	env := newBoardTestEnv(t)
	_, listA, _ := env.setupLists(t)

	ids := make(map[string]string)
	for _, title := range []string{"a", "b", "c", "d"} {
		card, err := env.cards.CreateCard(listA, CreateCardInput{Title: title})
		require.NoError(t, err)
		ids[title] = card.ID
	}

	// d 移到最前
	moved, err := env.cards.MoveCard(ids["d"], MoveCardInput{ToListID: listA, Position: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)
	assert.Equal(t, []string{"d", "a", "b", "c"}, env.cardTitles(t, listA))

	// a 移到中间
	_, err = env.cards.MoveCard(ids["a"], MoveCardInput{ToListID: listA, Position: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a", "c"}, env.cardTitles(t, listA))

	require.Len(t, env.events.byType(EventCardMoved), 2)
}

func TestMoveCardAcrossLists(t *testing.T) {
	env := newBoardTestEnv(t)
	_, listA, listB := env.setupLists(t)

	ids := make(map[string]string)
	for _, title := range []string{"a", "b", "c"} {
		card, err := env.cards.CreateCard(listA, CreateCardInput{Title: title})
		require.NoError(t, err)
		ids[title] = card.ID
	}
	for _, title := range []string{"x", "y"} {
		_, err := env.cards.CreateCard(listB, CreateCardInput{Title: title})
		require.NoError(t, err)
	}

	moved, err := env.cards.MoveCard(ids["b"], MoveCardInput{ToListID: listB, Position: 1})
	require.NoError(t, err)
	assert.Equal(t, listB, moved.ListID)
	assert.Equal(t, 1, moved.Position)

	// 两边位置都保持连续
	assert.Equal(t, []string{"a", "c"}, env.cardTitles(t, listA))
	assert.Equal(t, []string{"x", "b", "y"}, env.cardTitles(t, listB))
}

func TestMoveCardClampsPosition(t *testing.T) {
	env := newBoardTestEnv(t)
	_, listA, listB := env.setupLists(t)

	card, err := env.cards.CreateCard(listA, CreateCardInput{Title: "only"})
	require.NoError(t, err)

	// 越界位置夹取到列表末尾
	moved, err := env.cards.MoveCard(card.ID, MoveCardInput{ToListID: listB, Position: 99})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	_, err = env.cards.MoveCard(card.ID, MoveCardInput{ToListID: listB, Position: -1})
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = env.cards.MoveCard(card.ID, MoveCardInput{ToListID: "no-such-list", Position: 0})
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestDeleteCardRenumbersSiblings(t *testing.T) {
	env := newBoardTestEnv(t)
	_, listA, _ := env.setupLists(t)

	ids := make(map[string]string)
	for _, title := range []string{"a", "b", "c"} {
		card, err := env.cards.CreateCard(listA, CreateCardInput{Title: title})
		require.NoError(t, err)
		ids[title] = card.ID
	}

	require.NoError(t, env.cards.DeleteCard(ids["b"]))
	assert.Equal(t, []string{"a", "c"}, env.cardTitles(t, listA))

	assert.ErrorIs(t, env.cards.DeleteCard(ids["b"]), ErrCardNotFound)
}

func TestTagAttachDetach(t *testing.T) {
	env := newBoardTestEnv(t)
	boardID, listA, _ := env.setupLists(t)

	card, err := env.cards.CreateCard(listA, CreateCardInput{Title: "打标签"})
	require.NoError(t, err)

	tag, err := env.tags.CreateTag(boardID, CreateTagInput{Name: "加急", Color: "#ff0000"})
	require.NoError(t, err)

	_, err = env.tags.CreateTag(boardID, CreateTagInput{Name: "bad", Color: "red"})
	assert.ErrorIs(t, err, ErrInvalidTagColor)

	require.NoError(t, env.tags.AttachTag(card.ID, tag.ID))
	tags, err := env.tags.CardTags(card.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "加急", tags[0].Name)

	// 跨看板的标签不能挂到卡片上
	otherBoard, err := env.boards.CreateBoard("admin-1", CreateBoardInput{Title: "另一块板"})
	require.NoError(t, err)
	foreign, err := env.tags.CreateTag(otherBoard.ID, CreateTagInput{Name: "外部", Color: "#00ff00"})
	require.NoError(t, err)
	assert.ErrorIs(t, env.tags.AttachTag(card.ID, foreign.ID), ErrBoardMismatch)

	require.NoError(t, env.tags.DetachTag(card.ID, tag.ID))
	tags, err = env.tags.CardTags(card.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestBoardLifecycle(t *testing.T) {
	env := newBoardTestEnv(t)
	boardID, listA, _ := env.setupLists(t)

	_, err := env.cards.CreateCard(listA, CreateCardInput{Title: "孤儿卡"})
	require.NoError(t, err)

	title := "新排期"
	updated, err := env.boards.UpdateBoard(boardID, UpdateBoardInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "新排期", updated.Title)

	boards, err := env.boards.ListBoards("admin-1")
	require.NoError(t, err)
	require.Len(t, boards, 1)

	// 删看板级联删列表与卡片
	require.NoError(t, env.boards.DeleteBoard(boardID))
	_, err = env.boards.GetBoard(boardID)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	_, err = env.cards.ListCards(listA)
	assert.ErrorIs(t, err, ErrListNotFound)
}
