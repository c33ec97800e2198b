// card.go implements the card repository. Each card stores a plain-text
// preview derived from its HTML content; the preview is recomputed whenever
// content changes. cards_fts is kept in step by triggers.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// Card is a note in a card box. Timestamps are milliseconds.
type Card struct {
	ID         string   `json:"id"`
	BoxID      string   `json:"box_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Preview    string   `json:"preview"`
	Color      *string  `json:"color,omitempty"`
	Tags       []string `json:"tags"`
	IsPinned   bool     `json:"is_pinned"`
	IsArchived bool     `json:"is_archived"`
	SortOrder  float64  `json:"sort_order"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}

// NewCard holds the fields for CreateCard.
type NewCard struct {
	BoxID   string   `json:"box_id" validate:"required"`
	Title   string   `json:"title" validate:"notblank"`
	Content string   `json:"content"`
	Color   *string  `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Tags    []string `json:"tags,omitempty"`
}

// CardPatch lists the fields UpdateCard may change. Tags, when non-nil,
// replace the whole set.
type CardPatch struct {
	Title      *string   `json:"title,omitempty" validate:"omitempty,notblank"`
	Content    *string   `json:"content,omitempty"`
	Color      *string   `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Tags       *[]string `json:"tags,omitempty"`
	IsPinned   *bool     `json:"is_pinned,omitempty"`
	IsArchived *bool     `json:"is_archived,omitempty"`
	SortOrder  *float64  `json:"sort_order,omitempty"`
}

// CardFilter selects cards for Cards. A nil BoxID lists every box.
type CardFilter struct {
	BoxID           *string
	IncludeArchived bool
}

const cardColumns = `c.id, c.box_id, c.title, COALESCE(c.content, ''), COALESCE(c.preview, ''), c.color, c.tags,
	COALESCE(c.is_pinned, 0), COALESCE(c.is_archived, 0), COALESCE(c.sort_order, 0),
	COALESCE(c.created_at, 0), COALESCE(c.updated_at, 0)`

func scanCard(sc scanner) (Card, error) {
	var c Card
	var color, tags sql.NullString
	err := sc.Scan(&c.ID, &c.BoxID, &c.Title, &c.Content, &c.Preview, &color, &tags,
		&c.IsPinned, &c.IsArchived, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	c.Color = strPtr(color)
	c.Tags = decodeTags(tags)
	return c, err
}

func getCard(ctx context.Context, q querier, id string) (*Card, error) {
	c, err := scanCard(q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id))
	return one(c, err, "card")
}

func queryCards(ctx context.Context, q querier, query string, args ...any) ([]Card, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCard)
}

// touchBoxes sets updated_at on the given boxes. The count triggers keep
// cards_count but leave timestamps to the store clock.
func touchBoxes(ctx context.Context, q querier, ms int64, ids ...string) error {
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, `UPDATE card_boxes SET updated_at = ? WHERE id = ?`, ms, id); err != nil {
			return fmt.Errorf("touch box %s: %w", id, err)
		}
	}
	return nil
}

// CreateCard adds a card to an existing box. The preview is derived from
// content and the sort key is the creation time in milliseconds.
func (s *SQLiteStore) CreateCard(ctx context.Context, in NewCard) (*Card, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	c := &Card{
		ID:        newID(),
		BoxID:     in.BoxID,
		Title:     in.Title,
		Content:   in.Content,
		Preview:   Preview(in.Content, s.opts.PreviewLines),
		Color:     in.Color,
		Tags:      decodeTags(tags),
		SortOrder: float64(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getCardBox(ctx, tx, in.BoxID); err != nil {
			return fmt.Errorf("box %s: %w", in.BoxID, err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cards (id, box_id, title, content, preview, color, tags, is_pinned, is_archived, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
			c.ID, c.BoxID, c.Title, c.Content, c.Preview, nullString(c.Color), tags, c.SortOrder, now, now)
		if err != nil {
			return err
		}
		return touchBoxes(ctx, tx, now, in.BoxID)
	})
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

// Cards lists cards: pinned first, then by sort key, newest first among
// equal keys. Archived cards are omitted unless the filter asks for them.
func (s *SQLiteStore) Cards(ctx context.Context, f CardFilter) ([]Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE 1 = 1`
	var args []any
	if f.BoxID != nil {
		query += ` AND c.box_id = ?`
		args = append(args, *f.BoxID)
	}
	if !f.IncludeArchived {
		query += ` AND c.is_archived = 0`
	}
	query += ` ORDER BY c.is_pinned DESC, c.sort_order ASC, c.created_at DESC`

	var out []Card
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryCards(ctx, q, query, args...)
		return err
	})
	return out, err
}

// Card returns one card or ErrNotFound.
func (s *SQLiteStore) Card(ctx context.Context, id string) (*Card, error) {
	var c *Card
	err := s.withConn(ctx, func(q querier) error {
		var err error
		c, err = getCard(ctx, q, id)
		return err
	})
	return c, err
}

// UpdateCard applies the non-nil fields of patch in one statement. New
// content re-derives the preview in the same statement.
func (s *SQLiteStore) UpdateCard(ctx context.Context, id string, patch CardPatch) (*Card, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var a assignments
	setIf(&a, "title", patch.Title)
	if patch.Content != nil {
		a.set("content", *patch.Content)
		a.set("preview", Preview(*patch.Content, s.opts.PreviewLines))
	}
	setNullable(&a, "color", patch.Color)
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		a.set("tags", tags)
	}
	if patch.IsPinned != nil {
		a.set("is_pinned", boolInt(*patch.IsPinned))
	}
	if patch.IsArchived != nil {
		a.set("is_archived", boolInt(*patch.IsArchived))
	}
	setIf(&a, "sort_order", patch.SortOrder)

	var c *Card
	err := s.withConn(ctx, func(q querier) error {
		if err := a.apply(ctx, q, "cards", "updated_at", s.now().UnixMilli(), "id", id, ""); err != nil {
			return err
		}
		var err error
		c, err = getCard(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	return c, nil
}

// DeleteCard removes a card. Its box counter and search entry follow by
// trigger.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id string) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		c, err := getCard(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete card %s: %w", id, err)
		}
		return touchBoxes(ctx, tx, s.now().UnixMilli(), c.BoxID)
	})
}

// MoveCard moves a card into another existing box.
func (s *SQLiteStore) MoveCard(ctx context.Context, id, boxID string) (*Card, error) {
	var c *Card
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getCardBox(ctx, tx, boxID); err != nil {
			return fmt.Errorf("box %s: %w", boxID, err)
		}
		prev, err := getCard(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`UPDATE cards SET box_id = ?, updated_at = ? WHERE id = ?`, boxID, now, id); err != nil {
			return err
		}
		if prev.BoxID != boxID {
			if err := touchBoxes(ctx, tx, now, prev.BoxID, boxID); err != nil {
				return err
			}
		}
		c, err = getCard(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("move card %s: %w", id, err)
	}
	return c, nil
}

// SearchCards runs an FTS5 query over card title, content and preview.
// Archived cards are excluded; pinned cards come first.
func (s *SQLiteStore) SearchCards(ctx context.Context, query string) ([]Card, error) {
	var out []Card
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryCards(ctx, q,
			`SELECT `+cardColumns+` FROM cards c
			JOIN cards_fts f ON f.card_id = c.id
			WHERE cards_fts MATCH ? AND c.is_archived = 0
			ORDER BY c.is_pinned DESC, c.updated_at DESC
			LIMIT ?`, query, s.opts.SearchLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return out, nil
}
