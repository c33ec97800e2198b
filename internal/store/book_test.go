package store_test

import (
	"context"
	"testing"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_StatusStampsDates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b, err := s.CreateBook(ctx, store.NewBook{Title: "Dune", Author: strp("Herbert")})
	require.NoError(t, err)
	assert.Equal(t, store.BookWanted, b.Status)
	assert.Nil(t, b.StartDate)

	reading := store.BookReading
	got, err := s.UpdateBook(ctx, b.ID, store.BookPatch{Status: &reading})
	require.NoError(t, err)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, fixedNow.UnixMilli(), *got.StartDate)

	finished := store.BookFinished
	rating := int64(5)
	got, err = s.UpdateBook(ctx, b.ID, store.BookPatch{Status: &finished, Rating: &rating})
	require.NoError(t, err)
	require.NotNil(t, got.FinishDate)
	assert.Equal(t, fixedNow.UnixMilli(), *got.StartDate, "start date is kept")
	assert.Equal(t, int64(5), *got.Rating)

	bad := int64(9)
	_, err = s.UpdateBook(ctx, b.ID, store.BookPatch{Rating: &bad})
	assert.Error(t, err)

	done, err := s.Books(ctx, &finished)
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestBook_Search(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b, err := s.CreateBook(ctx, store.NewBook{Title: "The Go Programming Language", Tags: []string{"programming"}})
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, store.NewBook{Title: "Dune", Description: strp("desert planet")})
	require.NoError(t, err)

	found, err := s.SearchBooks(ctx, "desert")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dune", found[0].Title)

	found, err = s.SearchBooks(ctx, "programming")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	_, err = s.UpdateBook(ctx, b.ID, store.BookPatch{Title: strp("Concurrency in Go")})
	require.NoError(t, err)
	found, err = s.SearchBooks(ctx, "concurrency")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestBook_NotesAndHighlights(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b, err := s.CreateBook(ctx, store.NewBook{Title: "SICP"})
	require.NoError(t, err)

	_, err = s.CreateReadingNote(ctx, store.ReadingNote{BookID: "missing", Content: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	page := int64(12)
	n, err := s.CreateReadingNote(ctx, store.ReadingNote{BookID: b.ID, Content: "closures", PageNumber: &page})
	require.NoError(t, err)
	h, err := s.CreateHighlight(ctx, store.Highlight{BookID: b.ID, NoteID: &n.ID, Text: "wizards"})
	require.NoError(t, err)
	assert.Equal(t, "yellow", h.Color)

	notes, err := s.ReadingNotes(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	require.NoError(t, s.DeleteReadingNote(ctx, n.ID))
	hs, err := s.Highlights(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Nil(t, hs[0].NoteID, "highlight outlives its note")

	require.NoError(t, s.DeleteBook(ctx, b.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM book_highlights`))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM books_fts`))
}

func TestTimeline_CreateAndImport(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	id, err := s.CreateTimelineEntry(ctx, store.TimelineEntry{Content: "coffee"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	today, err := s.TimelineByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "10:30", today[0].Time)

	_, err = s.CreateTimelineEntry(ctx, store.TimelineEntry{Date: "Jan 1", Content: "x"})
	assert.Error(t, err)

	n, err := s.ImportTimeline(ctx, []store.TimelineEntry{
		{Date: "2024-01-01", Time: "10:30", Content: "coffee"},
		{Date: "2024-01-01", Time: "12:00", Content: "lunch", Mood: strp("good")},
		{Date: "2023-12-31", Time: "23:59", Content: "fireworks"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	today, err = s.TimelineByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "lunch", today[0].Content)

	recent, err := s.RecentTimeline(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	require.NoError(t, s.DeleteTimelineEntry(ctx, id))
	assert.ErrorIs(t, s.DeleteTimelineEntry(ctx, id), store.ErrNotFound)
}
