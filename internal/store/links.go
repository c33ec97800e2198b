// links.go manages relationships between pages (page_links) and between
// cards (card_links).
//
// Page links are plain directed edges keyed by (source, target). Card links
// carry an id and a link type. Both endpoints must exist; self links are
// rejected by validate.Link. Linking an already-linked pair is a no-op.

package store

import (
	"context"
	"fmt"

	"github.com/jpl-au/pim/internal/validate"
)

// CardLink is a typed edge between two cards. CreatedAt is milliseconds.
type CardLink struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_card_id"`
	TargetID  string `json:"target_card_id"`
	LinkType  string `json:"link_type"`
	CreatedAt int64  `json:"created_at"`
}

// DefaultCardLinkType is used when LinkCards is given an empty type.
const DefaultCardLinkType = "related"

// LinkPages records a directed link from one live page to another.
func (s *SQLiteStore) LinkPages(ctx context.Context, from, to string) error {
	if err := validate.Link(from, to); err != nil {
		return err
	}
	err := s.withConn(ctx, func(q querier) error {
		for _, id := range []string{from, to} {
			if _, err := getPage(ctx, q, id, false); err != nil {
				return fmt.Errorf("page %s: %w", id, err)
			}
		}
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO page_links (source_id, target_id) VALUES (?, ?)`, from, to)
		return err
	})
	if err != nil {
		return fmt.Errorf("link pages: %w", err)
	}
	return nil
}

// UnlinkPages removes a page link. ErrNotFound when it did not exist.
func (s *SQLiteStore) UnlinkPages(ctx context.Context, from, to string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM page_links WHERE source_id = ? AND target_id = ?`, from, to)
		if err != nil {
			return fmt.Errorf("unlink pages: %w", err)
		}
		return affected(res)
	})
}

// PageLinks returns the live pages that id links to.
func (s *SQLiteStore) PageLinks(ctx context.Context, id string) ([]Page, error) {
	return s.linkedPages(ctx,
		`SELECT `+pageCols("p")+` FROM page_links l JOIN pages p ON p.id = l.target_id
		WHERE l.source_id = ? AND p.is_deleted = 0 ORDER BY p.title`, id)
}

// Backlinks returns the live pages that link to id.
func (s *SQLiteStore) Backlinks(ctx context.Context, id string) ([]Page, error) {
	return s.linkedPages(ctx,
		`SELECT `+pageCols("p")+` FROM page_links l JOIN pages p ON p.id = l.source_id
		WHERE l.target_id = ? AND p.is_deleted = 0 ORDER BY p.title`, id)
}

func (s *SQLiteStore) linkedPages(ctx context.Context, query, id string) ([]Page, error) {
	var out []Page
	err := s.withConn(ctx, func(q querier) error {
		var err error
		out, err = queryPages(ctx, q, query, id)
		return err
	})
	return out, err
}

// LinkCards links two cards with the given type and returns the link.
// Linking an existing pair returns the existing link unchanged.
func (s *SQLiteStore) LinkCards(ctx context.Context, from, to, linkType string) (*CardLink, error) {
	if err := validate.Link(from, to); err != nil {
		return nil, err
	}
	if linkType == "" {
		linkType = DefaultCardLinkType
	}
	var link *CardLink
	err := s.withConn(ctx, func(q querier) error {
		for _, id := range []string{from, to} {
			if _, err := getCard(ctx, q, id); err != nil {
				return fmt.Errorf("card %s: %w", id, err)
			}
		}
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO card_links (id, source_card_id, target_card_id, link_type, created_at)
			VALUES (?, ?, ?, ?, ?)`, newID(), from, to, linkType, s.now().UnixMilli()); err != nil {
			return err
		}
		var l CardLink
		err := q.QueryRowContext(ctx,
			`SELECT id, source_card_id, target_card_id, COALESCE(link_type, ''), COALESCE(created_at, 0)
			FROM card_links WHERE source_card_id = ? AND target_card_id = ?`, from, to).
			Scan(&l.ID, &l.SourceID, &l.TargetID, &l.LinkType, &l.CreatedAt)
		link, err = one(l, err, "card link")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("link cards: %w", err)
	}
	return link, nil
}

// UnlinkCards removes the link between two cards.
func (s *SQLiteStore) UnlinkCards(ctx context.Context, from, to string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM card_links WHERE source_card_id = ? AND target_card_id = ?`, from, to)
		if err != nil {
			return fmt.Errorf("unlink cards: %w", err)
		}
		return affected(res)
	})
}

// CardLinks returns links touching a card in either direction.
func (s *SQLiteStore) CardLinks(ctx context.Context, cardID string) ([]CardLink, error) {
	var out []CardLink
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT id, source_card_id, target_card_id, COALESCE(link_type, ''), COALESCE(created_at, 0)
			FROM card_links WHERE source_card_id = ? OR target_card_id = ?
			ORDER BY created_at DESC`, cardID, cardID)
		if err != nil {
			return err
		}
		out, err = collect(rows, func(sc scanner) (CardLink, error) {
			var l CardLink
			return l, sc.Scan(&l.ID, &l.SourceID, &l.TargetID, &l.LinkType, &l.CreatedAt)
		})
		return err
	})
	return out, err
}
