package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linksnip/linksnip/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrShortIDExists = errors.New("short id already exists")
)

// CreateLink inserts a new link into the database.
// The unique index on short_id surfaces collisions as ErrShortIDExists.
func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `
		INSERT INTO links (id, short_id, original_url, owner_id, visit_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.ShortID,
		link.OriginalURL,
		link.OwnerID,
		link.VisitCount,
		link.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrShortIDExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByShortID retrieves a link without touching its visit counter.
func (r *Repository) GetLinkByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	query := `
		SELECT id, short_id, original_url, owner_id, visit_count, created_at
		FROM links
		WHERE short_id = $1
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, shortID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by short id: %w", err)
	}

	return link, nil
}

// ListLinksByOwner retrieves all links created by an owner, in insertion order.
func (r *Repository) ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	query := `
		SELECT id, short_id, original_url, owner_id, visit_count, created_at
		FROM links
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// ResolveAndCount is the hot path for redirects. It locates a link by short id
// and increments its visit counter in one indivisible statement, so concurrent
// redirects never lose updates. The returned link carries the post-increment
// count.
func (r *Repository) ResolveAndCount(ctx context.Context, shortID string) (*model.Link, error) {
	query := `
		UPDATE links
		SET visit_count = visit_count + 1
		WHERE short_id = $1
		RETURNING id, short_id, original_url, owner_id, visit_count, created_at
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, shortID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to resolve link: %w", err)
	}

	return link, nil
}

// scanLink scans a single row into a Link model.
func scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	err := row.Scan(
		&link.ID,
		&link.ShortID,
		&link.OriginalURL,
		&link.OwnerID,
		&link.VisitCount,
		&link.CreatedAt,
	)
	return &link, err
}
