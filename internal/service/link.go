package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linksnip/linksnip/internal/model"
	"github.com/linksnip/linksnip/internal/repository"
)

// Link service errors.
var (
	ErrInvalidURL   = errors.New("invalid original URL")
	ErrLinkNotFound = errors.New("link not found")
)

const (
	shortIDAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxShortIDRetries    = 3
	maxOriginalURLLength = 2048
)

// LinkStore is the link persistence consumed by LinkService.
// *repository.Repository satisfies it.
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*model.Link, error)
	ResolveAndCount(ctx context.Context, shortID string) (*model.Link, error)
}

// NegativeCache shields the redirect path from repeated misses.
// *cache.Cache satisfies it; a nil cache disables the optimization.
type NegativeCache interface {
	IsNegativelyCached(ctx context.Context, shortID string) (bool, error)
	SetNegativeCache(ctx context.Context, shortID string) error
	ClearNegativeCache(ctx context.Context, shortID string) error
}

// LinkService handles short-link business logic.
type LinkService struct {
	store   LinkStore
	cache   NegativeCache
	baseURL string
	logger  *slog.Logger
}

// NewLinkService creates a new LinkService. cache may be nil.
func NewLinkService(store LinkStore, cache NegativeCache, baseURL string, logger *slog.Logger) *LinkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkService{
		store:   store,
		cache:   cache,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// BaseURL returns the configured base URL for building short URLs.
func (s *LinkService) BaseURL() string {
	return s.baseURL
}

// Shorten validates the URL and creates a link with a fresh short id.
// Collision odds on a 10-char alphanumeric id are negligible; the unique
// index is the actual safety net, and a violation triggers a bounded
// regeneration rather than surfacing a conflict to the caller.
func (s *LinkService) Shorten(ctx context.Context, ownerID, originalURL string) (*model.Link, error) {
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < maxShortIDRetries; i++ {
		shortID, err := generateShortID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short id: %w", err)
		}

		link := &model.Link{
			ID:          ulid.Make().String(),
			ShortID:     shortID,
			OriginalURL: originalURL,
			OwnerID:     ownerID,
			VisitCount:  0,
			CreatedAt:   time.Now().UTC(),
		}

		if err := s.store.CreateLink(ctx, link); err != nil {
			if errors.Is(err, repository.ErrShortIDExists) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		// A previous miss may have marked this short id as absent.
		if s.cache != nil {
			if err := s.cache.ClearNegativeCache(ctx, shortID); err != nil {
				s.logger.Warn("failed to clear negative cache", "short_id", shortID, "error", err)
			}
		}

		return link, nil
	}

	return nil, fmt.Errorf("failed to generate unique short id after %d attempts: %w", maxShortIDRetries, lastErr)
}

// ListForOwner returns the owner's links in insertion order.
func (s *LinkService) ListForOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	links, err := s.store.ListLinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// ResolveAndRedirect is the hot path. The store performs the lookup and the
// visit-count increment as one atomic find-and-modify, so concurrent
// redirects on the same short id never lose updates.
func (s *LinkService) ResolveAndRedirect(ctx context.Context, shortID string) (*model.Link, error) {
	if s.cache != nil {
		if negative, err := s.cache.IsNegativelyCached(ctx, shortID); err == nil && negative {
			return nil, ErrLinkNotFound
		}
	}

	link, err := s.store.ResolveAndCount(ctx, shortID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			if s.cache != nil {
				if cacheErr := s.cache.SetNegativeCache(ctx, shortID); cacheErr != nil {
					s.logger.Warn("failed to set negative cache", "short_id", shortID, "error", cacheErr)
				}
			}
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to resolve link: %w", err)
	}

	return link, nil
}

// validateOriginalURL requires a syntactically valid absolute http/https URI.
func validateOriginalURL(originalURL string) error {
	if originalURL == "" {
		return ErrInvalidURL
	}
	if len(originalURL) > maxOriginalURLLength {
		return ErrInvalidURL
	}

	parsed, err := url.Parse(originalURL)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidURL
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// generateShortID returns a fixed-length alphanumeric id from crypto/rand.
func generateShortID() (string, error) {
	b := make([]byte, model.ShortIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(shortIDAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = shortIDAlphabet[n.Int64()]
	}
	return string(b), nil
}
