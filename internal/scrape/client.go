package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nitesh/article_service/pkg/models"
)

// The site serves a different, script-rendered page to browsers.
const userAgent = "curl/8.7.1"

const maxPageBytes = 5 << 20

// Client fetches DMM Eikaiwa daily-news pages and extracts article
// candidates from them.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a new client. If httpClient is nil, a default with timeout is used.
// Outbound fetches are spaced at least minInterval apart; zero disables the limit.
func NewClient(httpClient *http.Client, minInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Client{
		hc:      httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.New(slog.DiscardHandler),
	}
}

// SetLogger allows injecting a logger for fetch diagnostics.
func (c *Client) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// ScrapeArticle fetches url and extracts its title, body and discussion
// questions.
func (c *Client) ScrapeArticle(ctx context.Context, url string) (*models.ScrapedArticle, error) {
	page, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return Extract(url, bytes.NewReader(page))
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("scrape wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.hc.Do(req)
	c.logger.Debug("scrape fetch", "url", url, "error", err, "latency", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("scrape read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scrape request failed: status=%d", resp.StatusCode)
	}
	return body, nil
}
