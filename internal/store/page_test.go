package store_test

import (
	"context"
	"testing"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKB(t *testing.T, s *store.SQLiteStore) *store.KnowledgeBase {
	t.Helper()
	kb, err := s.CreateKnowledgeBase(context.Background(), store.NewKnowledgeBase{Name: "Notes"})
	require.NoError(t, err)
	return kb
}

func newPage(t *testing.T, s *store.SQLiteStore, kb, title string, parent *string, at store.Placement) *store.Page {
	t.Helper()
	p, err := s.CreatePage(context.Background(), store.NewPage{KBID: kb, Title: title, ParentID: parent, Placement: at})
	require.NoError(t, err)
	return p
}

func titles(pages []store.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Title)
	}
	return out
}

func TestKnowledgeBase_CRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	kb, err := s.CreateKnowledgeBase(ctx, store.NewKnowledgeBase{Name: "Work", Description: strp("job stuff")})
	require.NoError(t, err)
	assert.Equal(t, "📚", kb.Icon)

	_, err = s.CreateKnowledgeBase(ctx, store.NewKnowledgeBase{Name: "  "})
	assert.Error(t, err)

	got, err := s.UpdateKnowledgeBase(ctx, kb.ID, store.KnowledgeBasePatch{Name: strp("Office")})
	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)
	assert.Equal(t, "job stuff", *got.Description)

	found, err := s.SearchKnowledgeBases(ctx, "job")
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = s.UpdateKnowledgeBase(ctx, "missing", store.KnowledgeBasePatch{Name: strp("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestKnowledgeBase_DeleteCascades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	kb := newKB(t, s)
	root := newPage(t, s, kb.ID, "root", nil, store.Placement{})
	child := newPage(t, s, kb.ID, "child", &root.ID, store.Placement{})
	_, err := s.CreateBlock(ctx, store.NewBlock{PageID: child.ID, Type: "paragraph", Content: "alpha"})
	require.NoError(t, err)
	require.NoError(t, s.LinkPages(ctx, root.ID, child.ID))

	other := newKB(t, s)
	survivor := newPage(t, s, other.ID, "survivor", nil, store.Placement{})

	require.NoError(t, s.DeleteKnowledgeBase(ctx, kb.ID))

	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM pages WHERE kb_id = ?`, kb.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM blocks WHERE page_id IN (?, ?)`, root.ID, child.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM page_links`))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM search_index WHERE id IN (?, ?)`, root.ID, child.ID))

	_, err = s.KnowledgeBase(ctx, kb.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Page(ctx, survivor.ID, false)
	assert.NoError(t, err)
}

func TestPage_FractionalOrdering(t *testing.T) {
	s := setupStore(t)
	kb := newKB(t, s)

	a := newPage(t, s, kb.ID, "a", nil, store.Placement{})
	c := newPage(t, s, kb.ID, "c", nil, store.Placement{})
	b := newPage(t, s, kb.ID, "b", nil, store.Placement{After: a.ID, Before: c.ID})
	first := newPage(t, s, kb.ID, "first", nil, store.Placement{Before: a.ID})

	assert.Greater(t, b.SortOrder, a.SortOrder)
	assert.Less(t, b.SortOrder, c.SortOrder)
	assert.Less(t, first.SortOrder, a.SortOrder)

	pages, err := s.Pages(context.Background(), kb.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "a", "b", "c"}, titles(pages))
}

func TestPage_RepeatedInsertKeepsOrder(t *testing.T) {
	s := setupStore(t)
	kb := newKB(t, s)

	lo := newPage(t, s, kb.ID, "lo", nil, store.Placement{})
	hi := newPage(t, s, kb.ID, "hi", nil, store.Placement{})
	// Halving the same gap repeatedly forces a renumber.
	prev := hi
	for i := 0; i < 80; i++ {
		prev = newPage(t, s, kb.ID, "mid", nil, store.Placement{After: lo.ID, Before: prev.ID})
	}

	pages, err := s.Pages(context.Background(), kb.ID, nil)
	require.NoError(t, err)
	require.Len(t, pages, 82)
	assert.Equal(t, "lo", pages[0].Title)
	assert.Equal(t, prev.ID, pages[1].ID)
	assert.Equal(t, "hi", pages[len(pages)-1].Title)
	for i := 1; i < len(pages); i++ {
		assert.Less(t, pages[i-1].SortOrder, pages[i].SortOrder)
	}
}

func TestPage_SoftDeleteFiltering(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)

	root := newPage(t, s, kb.ID, "zebra root", nil, store.Placement{})
	kid := newPage(t, s, kb.ID, "zebra kid", &root.ID, store.Placement{})
	_, err := s.CreateBlock(ctx, store.NewBlock{PageID: kid.ID, Type: "paragraph", Content: "zebra block"})
	require.NoError(t, err)

	n, err := s.DeletePage(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.AllPages(ctx, kb.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
	found, err := s.SearchPages(ctx, "zebra")
	require.NoError(t, err)
	assert.Empty(t, found)
	hits, err := s.SearchContent(ctx, "zebra")
	require.NoError(t, err)
	assert.Empty(t, hits)
	_, err = s.Page(ctx, kid.ID, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The rows are still there.
	deleted, err := s.Page(ctx, kid.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM blocks WHERE page_id = ? AND is_deleted = 1`, kid.ID))

	trash, err := s.DeletedPages(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, trash, 2)
}

func TestPage_Restore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)

	root := newPage(t, s, kb.ID, "root", nil, store.Placement{})
	kid := newPage(t, s, kb.ID, "kid", &root.ID, store.Placement{})
	_, err := s.CreateBlock(ctx, store.NewBlock{PageID: kid.ID, Type: "paragraph", Content: "walrus"})
	require.NoError(t, err)
	_, err = s.DeletePage(ctx, root.ID)
	require.NoError(t, err)

	got, err := s.RestorePage(ctx, kid.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID, "restored under a deleted parent becomes a root")

	blocks, err := s.Blocks(ctx, kid.ID, nil)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
	hits, err := s.SearchContent(ctx, "walrus")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = s.RestorePage(ctx, kid.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPage_MoveRejectsCycles(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)

	a := newPage(t, s, kb.ID, "a", nil, store.Placement{})
	b := newPage(t, s, kb.ID, "b", &a.ID, store.Placement{})
	c := newPage(t, s, kb.ID, "c", &b.ID, store.Placement{})

	_, err := s.MovePage(ctx, a.ID, &c.ID, store.Placement{})
	assert.ErrorIs(t, err, store.ErrCycle)
	_, err = s.MovePage(ctx, a.ID, &a.ID, store.Placement{})
	assert.ErrorIs(t, err, store.ErrCycle)

	other := newKB(t, s)
	foreign := newPage(t, s, other.ID, "foreign", nil, store.Placement{})
	_, err = s.MovePage(ctx, c.ID, &foreign.ID, store.Placement{})
	assert.ErrorIs(t, err, store.ErrCrossKnowledgeBase)

	moved, err := s.MovePage(ctx, c.ID, nil, store.Placement{Before: a.ID})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	tree, err := s.PageTree(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, "c", tree[0].Title)
	assert.Equal(t, "a", tree[1].Title)
	assert.Equal(t, 1, tree[2].Depth)
}

func TestPage_Breadcrumb(t *testing.T) {
	s := setupStore(t)
	kb := newKB(t, s)

	a := newPage(t, s, kb.ID, "a", nil, store.Placement{})
	b := newPage(t, s, kb.ID, "b", &a.ID, store.Placement{})
	c := newPage(t, s, kb.ID, "c", &b.ID, store.Placement{})

	crumbs, err := s.Breadcrumb(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, titles(crumbs))

	_, err = s.Breadcrumb(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPage_ContentAndVersions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)
	p := newPage(t, s, kb.ID, "doc", nil, store.Placement{})

	body, err := s.PageContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultPageContent, body)

	v, err := s.SavePageContent(ctx, p.ID, "first draft", true)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = s.SavePageContent(ctx, p.ID, "second draft", false)
	require.NoError(t, err)
	assert.Zero(t, v)
	v, err = s.SavePageContent(ctx, p.ID, "final", true)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	versions, err := s.PageVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)

	one, err := s.PageVersion(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "first draft", one.Content)
	require.NotNil(t, one.CreatedBy)
	assert.Equal(t, "tester", *one.CreatedBy)

	hits, err := s.SearchContent(ctx, "final")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, store.KindPage, hits[0].Type)
	assert.Equal(t, "doc", hits[0].Title)
}

func TestPage_UpdateReindexes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)
	p := newPage(t, s, kb.ID, "gopher", nil, store.Placement{})

	_, err := s.UpdatePage(ctx, p.ID, store.PagePatch{Title: strp("penguin")})
	require.NoError(t, err)

	hits, err := s.SearchContent(ctx, "gopher")
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = s.SearchContent(ctx, "penguin")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM search_index WHERE id = ?`, p.ID))
}

func TestPage_IndexFailureStillPersists(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)

	_, err := s.DB().Exec(`DROP TABLE search_index`)
	require.NoError(t, err)

	p, err := s.CreatePage(ctx, store.NewPage{KBID: kb.ID, Title: "unindexed"})
	require.Error(t, err)
	assert.True(t, store.IsIndexWarning(err))
	require.NotNil(t, p)

	got, err := s.Page(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "unindexed", got.Title)
}

func TestPage_LinksAndTags(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)
	a := newPage(t, s, kb.ID, "a", nil, store.Placement{})
	b := newPage(t, s, kb.ID, "b", nil, store.Placement{})

	require.NoError(t, s.LinkPages(ctx, a.ID, b.ID))
	require.NoError(t, s.LinkPages(ctx, a.ID, b.ID), "relinking is a no-op")
	assert.Error(t, s.LinkPages(ctx, a.ID, a.ID))

	out, err := s.PageLinks(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(out))
	back, err := s.Backlinks(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(back))

	require.NoError(t, s.UnlinkPages(ctx, a.ID, b.ID))
	assert.ErrorIs(t, s.UnlinkPages(ctx, a.ID, b.ID), store.ErrNotFound)

	require.NoError(t, s.TagPage(ctx, a.ID, " Draft "))
	require.NoError(t, s.TagPage(ctx, b.ID, "draft"))
	require.NoError(t, s.TagPage(ctx, a.ID, "draft"))

	tags, err := s.PageTags(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Draft", "draft"}, tags)

	tagged, err := s.PagesByTag(ctx, "draft")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	require.NoError(t, s.UntagPage(ctx, b.ID, "draft"))
	all, err := s.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestBlock_Lifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kb := newKB(t, s)
	p := newPage(t, s, kb.ID, "page", nil, store.Placement{})
	other := newPage(t, s, kb.ID, "other", nil, store.Placement{})

	parent, err := s.CreateBlock(ctx, store.NewBlock{PageID: p.ID, Type: "list", Content: "shopping"})
	require.NoError(t, err)
	assert.Equal(t, "{}", parent.Data)
	kid, err := s.CreateBlock(ctx, store.NewBlock{PageID: p.ID, Type: "item", Content: "milk", ParentID: &parent.ID})
	require.NoError(t, err)

	all, err := s.Blocks(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	top, err := s.Blocks(ctx, p.ID, strp(""))
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, parent.ID, top[0].ID)
	children, err := s.Blocks(ctx, p.ID, &parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, kid.ID, children[0].ID)

	_, err = s.CreateBlock(ctx, store.NewBlock{PageID: other.ID, Type: "item", ParentID: &parent.ID})
	assert.ErrorIs(t, err, store.ErrCrossPage)
	_, err = s.MoveBlock(ctx, parent.ID, &kid.ID, store.Placement{})
	assert.ErrorIs(t, err, store.ErrCycle)

	_, err = s.UpdateBlock(ctx, kid.ID, store.BlockPatch{Content: strp("oat milk")})
	require.NoError(t, err)
	found, err := s.SearchBlocks(ctx, p.ID, "oat")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err := s.DeleteBlock(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM blocks WHERE page_id = ?`, p.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM search_index WHERE type = 'block'`))
}
