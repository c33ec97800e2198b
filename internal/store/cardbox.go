// cardbox.go implements the card box repository. A box's cards_count is
// maintained by triggers on cards and is never recomputed here.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// CardBox groups cards. Timestamps are milliseconds.
type CardBox struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	CardsCount  int     `json:"cards_count"`
	SortOrder   float64 `json:"sort_order"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// NewCardBox holds the fields for CreateCardBox.
type NewCardBox struct {
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Icon        *string `json:"icon,omitempty"`
}

// CardBoxPatch lists the fields UpdateCardBox may change. An empty string
// clears an optional field.
type CardBoxPatch struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,notblank"`
	Description *string  `json:"description,omitempty"`
	Color       *string  `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Icon        *string  `json:"icon,omitempty"`
	SortOrder   *float64 `json:"sort_order,omitempty"`
}

// BoxCount reports a box whose stored counter disagrees with its cards.
type BoxCount struct {
	BoxID  string `json:"box_id"`
	Name   string `json:"name"`
	Stored int    `json:"stored"`
	Actual int    `json:"actual"`
}

const cardBoxColumns = `id, name, description, color, icon, COALESCE(cards_count, 0),
	COALESCE(sort_order, 0), COALESCE(created_at, 0), COALESCE(updated_at, 0)`

func scanCardBox(sc scanner) (CardBox, error) {
	var b CardBox
	var desc, color, icon sql.NullString
	err := sc.Scan(&b.ID, &b.Name, &desc, &color, &icon, &b.CardsCount,
		&b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
	b.Description, b.Color, b.Icon = strPtr(desc), strPtr(color), strPtr(icon)
	return b, err
}

func getCardBox(ctx context.Context, q querier, id string) (*CardBox, error) {
	b, err := scanCardBox(q.QueryRowContext(ctx,
		`SELECT `+cardBoxColumns+` FROM card_boxes WHERE id = ?`, id))
	return one(b, err, "card box")
}

// CreateCardBox creates an empty box. Its sort key is the creation time in
// milliseconds, so new boxes sort last.
func (s *SQLiteStore) CreateCardBox(ctx context.Context, in NewCardBox) (*CardBox, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	b := &CardBox{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		SortOrder:   float64(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.withConn(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO card_boxes (id, name, description, color, icon, cards_count, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			b.ID, b.Name, nullString(b.Description), nullString(b.Color), nullString(b.Icon),
			b.SortOrder, now, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create card box: %w", err)
	}
	return b, nil
}

// CardBoxes lists boxes by sort key, newest first among equal keys.
func (s *SQLiteStore) CardBoxes(ctx context.Context) ([]CardBox, error) {
	var out []CardBox
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+cardBoxColumns+` FROM card_boxes ORDER BY sort_order ASC, created_at DESC`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanCardBox)
		return err
	})
	return out, err
}

// CardBox returns one box or ErrNotFound.
func (s *SQLiteStore) CardBox(ctx context.Context, id string) (*CardBox, error) {
	var b *CardBox
	err := s.withConn(ctx, func(q querier) error {
		var err error
		b, err = getCardBox(ctx, q, id)
		return err
	})
	return b, err
}

// UpdateCardBox applies the non-nil fields of patch in one statement.
func (s *SQLiteStore) UpdateCardBox(ctx context.Context, id string, patch CardBoxPatch) (*CardBox, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var b *CardBox
	err := s.withConn(ctx, func(q querier) error {
		var a assignments
		setIf(&a, "name", patch.Name)
		setNullable(&a, "description", patch.Description)
		setNullable(&a, "color", patch.Color)
		setNullable(&a, "icon", patch.Icon)
		setIf(&a, "sort_order", patch.SortOrder)
		if err := a.apply(ctx, q, "card_boxes", "updated_at", s.now().UnixMilli(), "id", id, ""); err != nil {
			return err
		}
		var err error
		b, err = getCardBox(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update card box %s: %w", id, err)
	}
	return b, nil
}

// DeleteCardBox removes an empty box. A box that still holds cards is left
// untouched and ErrBoxNotEmpty is returned.
func (s *SQLiteStore) DeleteCardBox(ctx context.Context, id string) error {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getCardBox(ctx, tx, id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cards WHERE box_id = ?`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrBoxNotEmpty
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM card_boxes WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete card box %s: %w", id, err)
	}
	return nil
}

// CheckCardCounts reports boxes whose cards_count differs from the number of
// cards they hold. It never repairs.
func (s *SQLiteStore) CheckCardCounts(ctx context.Context) ([]BoxCount, error) {
	var out []BoxCount
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT b.id, b.name, COALESCE(b.cards_count, 0),
				(SELECT COUNT(*) FROM cards c WHERE c.box_id = b.id) AS actual
			FROM card_boxes b
			WHERE COALESCE(b.cards_count, 0) != (SELECT COUNT(*) FROM cards c WHERE c.box_id = b.id)
			ORDER BY b.name`)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (BoxCount, error) {
			var c BoxCount
			return c, sc.Scan(&c.BoxID, &c.Name, &c.Stored, &c.Actual)
		})
		return err
	})
	return out, err
}
