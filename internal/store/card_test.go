package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBox(t *testing.T, s *store.SQLiteStore, name string) *store.CardBox {
	t.Helper()
	b, err := s.CreateCardBox(context.Background(), store.NewCardBox{Name: name})
	require.NoError(t, err)
	return b
}

func newCard(t *testing.T, s *store.SQLiteStore, box, title, content string) *store.Card {
	t.Helper()
	c, err := s.CreateCard(context.Background(), store.NewCard{BoxID: box, Title: title, Content: content})
	require.NoError(t, err)
	return c
}

func boxCount(t *testing.T, s *store.SQLiteStore, id string) int {
	t.Helper()
	b, err := s.CardBox(context.Background(), id)
	require.NoError(t, err)
	return b.CardsCount
}

func TestCardBox_CountFollowsCards(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	inbox := newBox(t, s, "Inbox")
	archive := newBox(t, s, "Archive")

	a := newCard(t, s, inbox.ID, "a", "")
	newCard(t, s, inbox.ID, "b", "")
	newCard(t, s, inbox.ID, "c", "")
	assert.Equal(t, 3, boxCount(t, s, inbox.ID))

	_, err := s.MoveCard(ctx, a.ID, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, boxCount(t, s, inbox.ID))
	assert.Equal(t, 1, boxCount(t, s, archive.ID))

	require.NoError(t, s.DeleteCard(ctx, a.ID))
	assert.Equal(t, 0, boxCount(t, s, archive.ID))

	drift, err := s.CheckCardCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	_, err = s.DB().Exec(`UPDATE card_boxes SET cards_count = 9 WHERE id = ?`, inbox.ID)
	require.NoError(t, err)
	drift, err = s.CheckCardCounts(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, store.BoxCount{BoxID: inbox.ID, Name: "Inbox", Stored: 9, Actual: 2}, drift[0])
}

func TestCardBox_DeleteRejectsNonEmpty(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	box := newBox(t, s, "Inbox")
	c := newCard(t, s, box.ID, "keep me", "")

	err := s.DeleteCardBox(ctx, box.ID)
	assert.ErrorIs(t, err, store.ErrBoxNotEmpty)
	_, err = s.Card(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCard(ctx, c.ID))
	require.NoError(t, s.DeleteCardBox(ctx, box.ID))
	assert.ErrorIs(t, s.DeleteCardBox(ctx, box.ID), store.ErrNotFound)
}

func TestCardBox_UpdateAndOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	first := newBox(t, s, "first")
	second := newBox(t, s, "second")

	_, err := s.UpdateCardBox(ctx, second.ID, store.CardBoxPatch{SortOrder: new(float64)})
	require.NoError(t, err)
	boxes, err := s.CardBoxes(ctx)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, second.ID, boxes[0].ID)
	assert.Equal(t, first.ID, boxes[1].ID)

	_, err = s.UpdateCardBox(ctx, first.ID, store.CardBoxPatch{Color: strp("blue")})
	assert.Error(t, err, "colour must be hex")

	got, err := s.UpdateCardBox(ctx, first.ID, store.CardBoxPatch{Description: strp("misc")})
	require.NoError(t, err)
	assert.Equal(t, "misc", *got.Description)
	got, err = s.UpdateCardBox(ctx, first.ID, store.CardBoxPatch{Description: strp("")})
	require.NoError(t, err)
	assert.Nil(t, got.Description)
}

func TestCard_CreateRequiresBox(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateCard(context.Background(), store.NewCard{BoxID: "nope", Title: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCard_PreviewAndTags(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	box := newBox(t, s, "Inbox")

	c, err := s.CreateCard(ctx, store.NewCard{
		BoxID:   box.ID,
		Title:   "html",
		Content: "<h1>Title</h1><p>Line one</p><p>Line two</p>",
		Tags:    []string{" go ", "sql", "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Title\nLine one\nLine two", c.Preview)
	assert.Equal(t, []string{"go", "sql"}, c.Tags)

	body := "one\ntwo"
	got, err := s.UpdateCard(ctx, c.ID, store.CardPatch{Content: &body, Tags: &[]string{}})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", got.Preview)
	assert.Empty(t, got.Tags)
}

func TestCard_ListOrdering(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	box := newBox(t, s, "Inbox")

	a := newCard(t, s, box.ID, "a", "")
	b := newCard(t, s, box.ID, "b", "")
	c := newCard(t, s, box.ID, "c", "")

	one := 1.0
	_, err := s.UpdateCard(ctx, c.ID, store.CardPatch{SortOrder: &one})
	require.NoError(t, err)
	pin := true
	_, err = s.UpdateCard(ctx, b.ID, store.CardPatch{IsPinned: &pin})
	require.NoError(t, err)
	_, err = s.UpdateCard(ctx, a.ID, store.CardPatch{IsArchived: &pin})
	require.NoError(t, err)

	cards, err := s.Cards(ctx, store.CardFilter{BoxID: &box.ID})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, b.ID, cards[0].ID, "pinned first")
	assert.Equal(t, c.ID, cards[1].ID)

	all, err := s.Cards(ctx, store.CardFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCard_SearchFollowsWrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	box := newBox(t, s, "Inbox")
	c := newCard(t, s, box.ID, "otter facts", "they hold hands")

	found, err := s.SearchCards(ctx, "otter")
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = s.UpdateCard(ctx, c.ID, store.CardPatch{Title: strp("beaver facts")})
	require.NoError(t, err)
	found, err = s.SearchCards(ctx, "otter")
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = s.SearchCards(ctx, "beaver")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	archived := true
	_, err = s.UpdateCard(ctx, c.ID, store.CardPatch{IsArchived: &archived})
	require.NoError(t, err)
	found, err = s.SearchCards(ctx, "beaver")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.DeleteCard(ctx, c.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM cards_fts`))
}

func TestCard_Links(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	box := newBox(t, s, "Inbox")
	a := newCard(t, s, box.ID, "a", "")
	b := newCard(t, s, box.ID, "b", "")

	l, err := s.LinkCards(ctx, a.ID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultCardLinkType, l.LinkType)

	again, err := s.LinkCards(ctx, a.ID, b.ID, "cites")
	require.NoError(t, err)
	assert.Equal(t, l.ID, again.ID)
	assert.Equal(t, store.DefaultCardLinkType, again.LinkType)

	_, err = s.LinkCards(ctx, a.ID, a.ID, "")
	assert.Error(t, err)

	links, err := s.CardLinks(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	require.NoError(t, s.DeleteCard(ctx, a.ID))
	links, err = s.CardLinks(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCardBox_UpdatedAtFollowsClock(t *testing.T) {
	now := fixedNow
	s := setupStoreAt(t, func() time.Time { return now })
	ctx := context.Background()
	inbox := newBox(t, s, "Inbox")
	archive := newBox(t, s, "Archive")

	boxUpdated := func(id string) int64 {
		b, err := s.CardBox(ctx, id)
		require.NoError(t, err)
		return b.UpdatedAt
	}

	now = fixedNow.Add(time.Hour)
	c := newCard(t, s, inbox.ID, "a", "")
	assert.Equal(t, now.UnixMilli(), boxUpdated(inbox.ID))

	now = fixedNow.Add(2 * time.Hour)
	_, err := s.MoveCard(ctx, c.ID, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), boxUpdated(inbox.ID))
	assert.Equal(t, now.UnixMilli(), boxUpdated(archive.ID))

	now = fixedNow.Add(3 * time.Hour)
	require.NoError(t, s.DeleteCard(ctx, c.ID))
	assert.Equal(t, now.UnixMilli(), boxUpdated(archive.ID))
	assert.ErrorIs(t, s.DeleteCard(ctx, c.ID), store.ErrNotFound)
}
