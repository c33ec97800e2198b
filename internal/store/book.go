// book.go implements the reading list: books, reading notes and highlights.
// books_fts mirrors title, author, description and tags by trigger. Notes and
// highlights are removed with their book by cascade.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Book statuses.
const (
	BookWanted   = "wanted"
	BookReading  = "reading"
	BookFinished = "finished"
)

// Book is an entry in the reading list. Timestamps and dates are
// milliseconds.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      *string  `json:"author,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Cover       *string  `json:"cover,omitempty"`
	Status      string   `json:"status"`
	TotalPages  *int64   `json:"total_pages,omitempty"`
	CurrentPage int64    `json:"current_page"`
	Rating      *int64   `json:"rating,omitempty"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description,omitempty"`
	StartDate   *int64   `json:"start_date,omitempty"`
	FinishDate  *int64   `json:"finish_date,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

// NewBook holds the fields for CreateBook. Status defaults to wanted.
type NewBook struct {
	Title       string   `json:"title" validate:"notblank"`
	Author      *string  `json:"author,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Cover       *string  `json:"cover,omitempty"`
	Status      string   `json:"status" validate:"omitempty,oneof=wanted reading finished"`
	TotalPages  *int64   `json:"total_pages,omitempty" validate:"omitempty,gte=0"`
	Tags        []string `json:"tags,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// BookPatch lists the fields UpdateBook may change. Moving to reading stamps
// start_date and moving to finished stamps finish_date when they are unset.
type BookPatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,notblank"`
	Author      *string   `json:"author,omitempty"`
	ISBN        *string   `json:"isbn,omitempty"`
	Cover       *string   `json:"cover,omitempty"`
	Status      *string   `json:"status,omitempty" validate:"omitempty,oneof=wanted reading finished"`
	TotalPages  *int64    `json:"total_pages,omitempty" validate:"omitempty,gte=0"`
	CurrentPage *int64    `json:"current_page,omitempty" validate:"omitempty,gte=0"`
	Rating      *int64    `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Tags        *[]string `json:"tags,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// ReadingNote is a note taken against a book.
type ReadingNote struct {
	ID         string  `json:"id"`
	BookID     string  `json:"book_id" validate:"required"`
	Chapter    *string `json:"chapter,omitempty"`
	PageNumber *int64  `json:"page_number,omitempty"`
	Content    string  `json:"content" validate:"notblank"`
	NoteType   string  `json:"note_type" validate:"omitempty,oneof=note thought summary"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

// Highlight is a passage marked in a book, optionally tied to a note.
type Highlight struct {
	ID         string  `json:"id"`
	BookID     string  `json:"book_id" validate:"required"`
	NoteID     *string `json:"note_id,omitempty"`
	Text       string  `json:"text" validate:"notblank"`
	PageNumber *int64  `json:"page_number,omitempty"`
	Color      string  `json:"color"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  int64   `json:"created_at"`
}

const bookColumns = `b.id, b.title, b.author, b.isbn, b.cover, COALESCE(b.status, 'wanted'), b.total_pages,
	COALESCE(b.current_page, 0), b.rating, b.tags, b.description, b.start_date, b.finish_date,
	COALESCE(b.created_at, 0), COALESCE(b.updated_at, 0)`

func scanBook(sc scanner) (Book, error) {
	var b Book
	var author, isbn, cover, tags, desc sql.NullString
	var total, rating, start, finish sql.NullInt64
	err := sc.Scan(&b.ID, &b.Title, &author, &isbn, &cover, &b.Status, &total, &b.CurrentPage,
		&rating, &tags, &desc, &start, &finish, &b.CreatedAt, &b.UpdatedAt)
	b.Author, b.ISBN, b.Cover, b.Description = strPtr(author), strPtr(isbn), strPtr(cover), strPtr(desc)
	b.TotalPages, b.Rating, b.StartDate, b.FinishDate = int64Ptr(total), int64Ptr(rating), int64Ptr(start), int64Ptr(finish)
	b.Tags = decodeTags(tags)
	return b, err
}

func getBook(ctx context.Context, q querier, id string) (*Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.id = ?`, id))
	return one(b, err, "book")
}

func (s *SQLiteStore) queryBooks(ctx context.Context, query string, args ...any) ([]Book, error) {
	var out []Book
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanBook)
		return err
	})
	return out, err
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// CreateBook adds a book to the reading list.
func (s *SQLiteStore) CreateBook(ctx context.Context, in NewBook) (*Book, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = BookWanted
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	var start, finish sql.NullInt64
	switch in.Status {
	case BookReading:
		start = sql.NullInt64{Int64: now, Valid: true}
	case BookFinished:
		finish = sql.NullInt64{Int64: now, Valid: true}
	}
	id := newID()
	var b *Book
	err = s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO books (id, title, author, isbn, cover, status, total_pages, current_page, tags, description,
				start_date, finish_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
			id, in.Title, nullString(in.Author), nullString(in.ISBN), nullString(in.Cover), in.Status,
			nullInt(in.TotalPages), tags, nullString(in.Description), start, finish, now, now); err != nil {
			return err
		}
		var err error
		b, err = getBook(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

// Books lists books, most recently updated first. A non-nil status filters.
func (s *SQLiteStore) Books(ctx context.Context, status *string) ([]Book, error) {
	if status != nil {
		return s.queryBooks(ctx,
			`SELECT `+bookColumns+` FROM books b WHERE b.status = ? ORDER BY b.updated_at DESC`, *status)
	}
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books b ORDER BY b.updated_at DESC`)
}

// Book returns one book or ErrNotFound.
func (s *SQLiteStore) Book(ctx context.Context, id string) (*Book, error) {
	var b *Book
	err := s.withConn(ctx, func(q querier) error {
		var err error
		b, err = getBook(ctx, q, id)
		return err
	})
	return b, err
}

// UpdateBook applies the non-nil fields of patch in one statement.
func (s *SQLiteStore) UpdateBook(ctx context.Context, id string, patch BookPatch) (*Book, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	var a assignments
	setIf(&a, "title", patch.Title)
	setNullable(&a, "author", patch.Author)
	setNullable(&a, "isbn", patch.ISBN)
	setNullable(&a, "cover", patch.Cover)
	setNullable(&a, "description", patch.Description)
	setIf(&a, "total_pages", patch.TotalPages)
	setIf(&a, "current_page", patch.CurrentPage)
	setIf(&a, "rating", patch.Rating)
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		a.set("tags", tags)
	}
	if patch.Status != nil {
		a.set("status", *patch.Status)
		switch *patch.Status {
		case BookReading:
			a.cols = append(a.cols, "start_date = COALESCE(start_date, ?)")
			a.args = append(a.args, now)
		case BookFinished:
			a.cols = append(a.cols, "finish_date = COALESCE(finish_date, ?)")
			a.args = append(a.args, now)
		}
	}
	var b *Book
	err := s.withConn(ctx, func(q querier) error {
		if err := a.apply(ctx, q, "books", "updated_at", now, "id", id, ""); err != nil {
			return err
		}
		var err error
		b, err = getBook(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update book %s: %w", id, err)
	}
	return b, nil
}

// DeleteBook removes a book with its notes and highlights.
func (s *SQLiteStore) DeleteBook(ctx context.Context, id string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete book %s: %w", id, err)
		}
		return affected(res)
	})
}

// SearchBooks runs an FTS5 query over title, author, description and tags,
// and also matches books whose tags contain query as a substring.
func (s *SQLiteStore) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	out, err := s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b
		WHERE b.id IN (SELECT book_id FROM books_fts WHERE books_fts MATCH ?)
		OR b.tags LIKE ? ESCAPE '\'
		ORDER BY b.updated_at DESC
		LIMIT ?`, query, like(query), s.opts.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return out, nil
}

// CreateReadingNote attaches a note to an existing book.
func (s *SQLiteStore) CreateReadingNote(ctx context.Context, n ReadingNote) (*ReadingNote, error) {
	if err := validate.Struct(n); err != nil {
		return nil, err
	}
	if n.NoteType == "" {
		n.NoteType = "note"
	}
	n.ID = newID()
	n.CreatedAt = s.now().UnixMilli()
	n.UpdatedAt = n.CreatedAt
	err := s.withConn(ctx, func(q querier) error {
		if _, err := getBook(ctx, q, n.BookID); err != nil {
			return fmt.Errorf("book %s: %w", n.BookID, err)
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO reading_notes (id, book_id, chapter, page_number, content, note_type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.BookID, nullString(n.Chapter), nullInt(n.PageNumber), n.Content, n.NoteType,
			n.CreatedAt, n.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create reading note: %w", err)
	}
	return &n, nil
}

// ReadingNotes lists a book's notes by page, then creation time.
func (s *SQLiteStore) ReadingNotes(ctx context.Context, bookID string) ([]ReadingNote, error) {
	var out []ReadingNote
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT id, book_id, chapter, page_number, content, COALESCE(note_type, 'note'),
				COALESCE(created_at, 0), COALESCE(updated_at, 0)
			FROM reading_notes WHERE book_id = ?
			ORDER BY page_number IS NULL, page_number, created_at`, bookID)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (ReadingNote, error) {
			var n ReadingNote
			var chapter sql.NullString
			var page sql.NullInt64
			err := sc.Scan(&n.ID, &n.BookID, &chapter, &page, &n.Content, &n.NoteType, &n.CreatedAt, &n.UpdatedAt)
			n.Chapter, n.PageNumber = strPtr(chapter), int64Ptr(page)
			return n, err
		})
		return err
	})
	return out, err
}

// DeleteReadingNote removes a note. Highlights tied to it are kept and
// detached.
func (s *SQLiteStore) DeleteReadingNote(ctx context.Context, id string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM reading_notes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete reading note %s: %w", id, err)
		}
		return affected(res)
	})
}

// CreateHighlight records a highlighted passage of an existing book.
func (s *SQLiteStore) CreateHighlight(ctx context.Context, h Highlight) (*Highlight, error) {
	if err := validate.Struct(h); err != nil {
		return nil, err
	}
	if h.Color == "" {
		h.Color = "yellow"
	}
	h.ID = newID()
	h.CreatedAt = s.now().UnixMilli()
	err := s.withConn(ctx, func(q querier) error {
		if _, err := getBook(ctx, q, h.BookID); err != nil {
			return fmt.Errorf("book %s: %w", h.BookID, err)
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO book_highlights (id, book_id, note_id, text, page_number, color, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.BookID, nullString(h.NoteID), h.Text, nullInt(h.PageNumber), h.Color,
			nullString(h.Notes), h.CreatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create highlight: %w", err)
	}
	return &h, nil
}

// Highlights lists a book's highlights by page, then creation time.
func (s *SQLiteStore) Highlights(ctx context.Context, bookID string) ([]Highlight, error) {
	var out []Highlight
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT id, book_id, note_id, text, page_number, COALESCE(color, 'yellow'), notes, COALESCE(created_at, 0)
			FROM book_highlights WHERE book_id = ?
			ORDER BY page_number IS NULL, page_number, created_at`, bookID)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (Highlight, error) {
			var h Highlight
			var note, notes sql.NullString
			var page sql.NullInt64
			err := sc.Scan(&h.ID, &h.BookID, &note, &h.Text, &page, &h.Color, &notes, &h.CreatedAt)
			h.NoteID, h.Notes, h.PageNumber = strPtr(note), strPtr(notes), int64Ptr(page)
			return h, err
		})
		return err
	})
	return out, err
}

// DeleteHighlight removes a highlight.
func (s *SQLiteStore) DeleteHighlight(ctx context.Context, id string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM book_highlights WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete highlight %s: %w", id, err)
		}
		return affected(res)
	})
}
