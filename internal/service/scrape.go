package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nitesh/article_service/pkg/models"
)

const (
	supportedArticlePath = "eikaiwa.dmm.com/app/daily-news/article/"
	scrapeCachePrefix    = "scrape:"
)

// Scraper turns a source URL into candidate article content.
type Scraper interface {
	ScrapeArticle(ctx context.Context, url string) (*models.ScrapedArticle, error)
}

// ScrapeService validates scrape requests and caches successful candidates
// in redis. It never writes the article store.
type ScrapeService struct {
	scraper Scraper
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewScrapeService returns a scrape service. A nil rdb disables caching.
func NewScrapeService(scraper Scraper, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ScrapeService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScrapeService{scraper: scraper, rdb: rdb, ttl: ttl, logger: logger}
}

// Scrape returns the candidate for url. A nil receiver or scraper reports
// ErrScrapeUnavailable.
func (s *ScrapeService) Scrape(ctx context.Context, url string) (*models.ScrapedArticle, error) {
	if s == nil || s.scraper == nil {
		return nil, ErrScrapeUnavailable
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: missing url", ErrInvalidInput)
	}
	if !strings.Contains(url, supportedArticlePath) {
		return nil, ErrUnsupportedURL
	}

	if cached := s.cached(ctx, url); cached != nil {
		return cached, nil
	}

	scraped, err := s.scraper.ScrapeArticle(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScrapeFailed, err)
	}
	if scraped.Title == "" || scraped.Body == "" {
		return nil, fmt.Errorf("%w: missing title or body", ErrScrapeFailed)
	}
	if len(scraped.Questions) == 0 {
		return nil, fmt.Errorf("%w: no discussion questions found", ErrScrapeFailed)
	}

	s.store(ctx, url, scraped)
	return scraped, nil
}

// cache failures are logged and treated as misses

func (s *ScrapeService) cached(ctx context.Context, url string) *models.ScrapedArticle {
	if s.rdb == nil {
		return nil
	}
	b, err := s.rdb.Get(ctx, scrapeCachePrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.logger.Warn("scrape cache read failed", "url", url, "error", err)
		return nil
	}
	var out models.ScrapedArticle
	if err := json.Unmarshal(b, &out); err != nil {
		s.logger.Warn("scrape cache entry corrupt", "url", url, "error", err)
		return nil
	}
	s.logger.Debug("scrape cache hit", "url", url)
	return &out
}

func (s *ScrapeService) store(ctx context.Context, url string, a *models.ScrapedArticle) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(a)
	if err != nil {
		s.logger.Warn("scrape cache encode failed", "url", url, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, scrapeCachePrefix+url, b, s.ttl).Err(); err != nil {
		s.logger.Warn("scrape cache write failed", "url", url, "error", err)
	}
}
