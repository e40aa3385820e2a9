package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	dbtypes "github.com/nitesh/article_service/internal/db"
	"github.com/nitesh/article_service/internal/service"
	"github.com/nitesh/article_service/pkg/models"
)

const (
	msgMissingFields  = "Missing required fields"
	msgInvalidBody    = "Invalid request body"
	msgInvalidDate    = "Invalid studied_at"
	msgNotFound       = "Article not found"
	msgInternal       = "Internal server error"
	msgMissingURL     = "Missing required field: url"
	msgScrapeDisabled = "Scraping feature not available"
	msgScrapeFailed   = "Failed to scrape article"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc     *service.Service
	scrapes *service.ScrapeService
	db      Pinger
	logger  *slog.Logger
}

// NewHandler wires the article service to HTTP. scrapes and db may be nil;
// scraping then answers 501 and the health check only reports liveness.
func NewHandler(svc *service.Service, scrapes *service.ScrapeService, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, scrapes: scrapes, db: db, logger: logger}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/articles", h.ListArticles)
		api.POST("/articles", h.CreateArticle)
		api.POST("/articles/scrape", h.ScrapeArticle)
		api.GET("/articles/:id", h.GetArticle)
		api.PUT("/articles/:id", h.UpdateArticle)
		api.DELETE("/articles/:id", h.DeleteArticle)
	}
}

// articleRequest is the create/update body. Questions order becomes sort.
type articleRequest struct {
	URL       string                 `json:"url" binding:"required"`
	Body      string                 `json:"body" binding:"required"`
	StudiedAt string                 `json:"studied_at" binding:"required"`
	Questions []models.QuestionInput `json:"questions" binding:"required"`
}

type scrapeRequest struct {
	URL string `json:"url"`
}

// Health: GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListArticles: GET /api/articles
func (h *Handler) ListArticles(c *gin.Context) {
	articles, err := h.svc.ListArticles(c.Request.Context())
	if err != nil {
		h.fail(c, "list articles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// GetArticle: GET /api/articles/:id
func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.svc.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get article", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

// CreateArticle: POST /api/articles
func (h *Handler) CreateArticle(c *gin.Context) {
	in, ok := bindArticle(c)
	if !ok {
		return
	}
	res, err := h.svc.CreateArticle(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create article", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateArticle: PUT /api/articles/:id
func (h *Handler) UpdateArticle(c *gin.Context) {
	in, ok := bindArticle(c)
	if !ok {
		return
	}
	res, err := h.svc.UpdateArticle(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, "update article", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteArticle: DELETE /api/articles/:id
func (h *Handler) DeleteArticle(c *gin.Context) {
	res, err := h.svc.DeleteArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "delete article", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScrapeArticle: POST /api/articles/scrape
// Body: {"url": "..."}. Returns a candidate for the create form; nothing is stored.
func (h *Handler) ScrapeArticle(c *gin.Context) {
	if h.scrapes == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": msgScrapeDisabled})
		return
	}

	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	scraped, err := h.scrapes.Scrape(c.Request.Context(), req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, scraped)
	case errors.Is(err, service.ErrScrapeUnavailable):
		c.JSON(http.StatusNotImplemented, gin.H{"error": msgScrapeDisabled})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingURL})
	case errors.Is(err, service.ErrUnsupportedURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid DMM Eikaiwa article URL"})
	case errors.Is(err, service.ErrScrapeFailed):
		h.logger.Warn("scrape failed", "url", req.URL, "error", err)
		detail := strings.TrimPrefix(err.Error(), service.ErrScrapeFailed.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msgScrapeFailed + detail})
	default:
		h.fail(c, "scrape article", err)
	}
}

func bindArticle(c *gin.Context) (service.ArticleInput, bool) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		}
		return service.ArticleInput{}, false
	}

	studiedAt, err := dbtypes.ParseDate(req.StudiedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidDate})
		return service.ArticleInput{}, false
	}

	return service.ArticleInput{
		URL:       req.URL,
		Body:      req.Body,
		StudiedAt: studiedAt,
		Questions: req.Questions,
	}, true
}

// fail maps service errors to responses. Storage details never reach the client.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
	case errors.Is(err, service.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	default:
		h.logger.Error(op+" failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
