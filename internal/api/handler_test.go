package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/article_service/internal/service"
	"github.com/nitesh/article_service/internal/store"
	"github.com/nitesh/article_service/pkg/models"
)

const articleURL = "https://eikaiwa.dmm.com/app/daily-news/article/some-story/abc123"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubScraper struct {
	article *models.ScrapedArticle
	err     error
}

func (s *stubScraper) ScrapeArticle(ctx context.Context, url string) (*models.ScrapedArticle, error) {
	if s.err != nil {
		return nil, s.err
	}
	a := *s.article
	a.URL = url
	return &a, nil
}

type testServer struct {
	router *gin.Engine
	db     *sql.DB
}

func newTestServer(t *testing.T, scraper service.Scraper) *testServer {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.RunMigrations(db, "sqlite"))

	repo := store.NewStore(db, "sqlite")
	svc := service.NewService(repo)
	var scrapes *service.ScrapeService
	if scraper != nil {
		scrapes = service.NewScrapeService(scraper, nil, 0, nil)
	}
	h := NewHandler(svc, scrapes, repo, nil)
	return &testServer{router: NewRouter(h, slog.New(slog.DiscardHandler)), db: db}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

type articleResponse struct {
	Article struct {
		ID        string             `json:"id"`
		Title     string             `json:"title"`
		URL       string             `json:"url"`
		Body      string             `json:"body"`
		StudiedAt string             `json:"studied_at"`
		Questions []*models.Question `json:"questions"`
	} `json:"article"`
}

func createArticle(t *testing.T, s *testServer, body string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/articles", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	decode(t, w, &res)
	require.NotEmpty(t, res.ID)
	assert.Equal(t, service.MsgArticleCreated, res.Message)
	return res.ID
}

func TestArticleLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	id := createArticle(t, s, `{
		"url": "https://x",
		"body": "Hello\n\nWorld",
		"studied_at": "2025-10-23",
		"questions": [{"question": "Q1", "answer": "A1"}, {"question": "Q2", "answer": "A2"}]
	}`)

	w := s.do(t, http.MethodGet, "/api/articles/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got articleResponse
	decode(t, w, &got)
	assert.Equal(t, "Hello", got.Article.Title)
	assert.Equal(t, "2025-10-23", got.Article.StudiedAt)
	require.Len(t, got.Article.Questions, 2)
	assert.Equal(t, 1, got.Article.Questions[0].Sort)
	assert.Equal(t, "Q1", got.Article.Questions[0].Body)
	assert.Equal(t, 2, got.Article.Questions[1].Sort)
	assert.Equal(t, "A2", got.Article.Questions[1].Answer)

	w = s.do(t, http.MethodPut, "/api/articles/"+id, `{
		"url": "https://x",
		"body": "Hi",
		"studied_at": "2025-10-24",
		"questions": [{"question": "Q3", "answer": "A3"}]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var msg map[string]string
	decode(t, w, &msg)
	assert.Equal(t, service.MsgArticleUpdated, msg["message"])

	w = s.do(t, http.MethodGet, "/api/articles/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	got = articleResponse{}
	decode(t, w, &got)
	assert.Equal(t, "Hi", got.Article.Title)
	require.Len(t, got.Article.Questions, 1)
	assert.Equal(t, 1, got.Article.Questions[0].Sort)
	assert.Equal(t, "Q3", got.Article.Questions[0].Body)

	w = s.do(t, http.MethodDelete, "/api/articles/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &msg)
	assert.Equal(t, service.MsgArticleDeleted, msg["message"])

	w = s.do(t, http.MethodGet, "/api/articles/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Article not found", errorOf(t, w))
}

func TestListArticles(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"articles": []}`, w.Body.String())

	createArticle(t, s, `{"url":"u1","body":"Older","studied_at":"2025-01-01","questions":[]}`)
	createArticle(t, s, `{"url":"u2","body":"Newer","studied_at":"2025-02-01","questions":[]}`)

	w = s.do(t, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Articles []models.Article `json:"articles"`
	}
	decode(t, w, &list)
	require.Len(t, list.Articles, 2)
	assert.Equal(t, "Newer", list.Articles[0].Title)
	assert.Equal(t, "Older", list.Articles[1].Title)
	assert.NotContains(t, w.Body.String(), "questions")
}

func TestCreateArticleRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing url", `{"body":"b","studied_at":"2025-01-01","questions":[]}`, "Missing required fields"},
		{"missing questions", `{"url":"u","body":"b","studied_at":"2025-01-01"}`, "Missing required fields"},
		{"null questions", `{"url":"u","body":"b","studied_at":"2025-01-01","questions":null}`, "Missing required fields"},
		{"blank body", `{"url":"u","body":"   ","studied_at":"2025-01-01","questions":[]}`, "Missing required fields"},
		{"bad date", `{"url":"u","body":"b","studied_at":"yesterday","questions":[]}`, "Invalid studied_at"},
		{"date with suffix", `{"url":"u","body":"b","studied_at":"2025-10-23xyz","questions":[]}`, "Invalid studied_at"},
		{"date with trailing text", `{"url":"u","body":"b","studied_at":"2025-10-23 garbage!!","questions":[]}`, "Invalid studied_at"},
		{"date with bad time", `{"url":"u","body":"b","studied_at":"2025-10-23T99:99","questions":[]}`, "Invalid studied_at"},
		{"malformed json", `{"url":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			w := s.do(t, http.MethodPost, "/api/articles", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorOf(t, w))

			w = s.do(t, http.MethodGet, "/api/articles", "")
			assert.JSONEq(t, `{"articles": []}`, w.Body.String())
		})
	}
}

func TestMissingArticleIs404(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"url":"u","body":"b","studied_at":"2025-01-01","questions":[]}`

	for _, tt := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, body},
		{http.MethodDelete, ""},
	} {
		w := s.do(t, tt.method, "/api/articles/does-not-exist", tt.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tt.method)
		assert.Equal(t, "Article not found", errorOf(t, w), tt.method)
	}
}

func TestUpdateValidatesBeforeLookup(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPut, "/api/articles/does-not-exist", `{"url":"u"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", errorOf(t, w))
}

func TestStorageFailureIs500(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.db.Close())

	w := s.do(t, http.MethodGet, "/api/articles", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorOf(t, w))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.NoError(t, s.db.Close())
	w = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScrapeArticle(t *testing.T) {
	candidate := &models.ScrapedArticle{
		Title:     "Scientists find a new way to recycle plastic",
		Body:      "A long English paragraph.",
		Questions: []string{"What do you think about recycling?"},
	}

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{"url":"`+articleURL+`"}`)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Equal(t, "Scraping feature not available", errorOf(t, w))
	})

	t.Run("disabled ignores body", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{"url":`)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Equal(t, "Scraping feature not available", errorOf(t, w))
	})

	t.Run("missing url", func(t *testing.T) {
		s := newTestServer(t, &stubScraper{article: candidate})
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing required field: url", errorOf(t, w))
	})

	t.Run("unsupported url", func(t *testing.T) {
		s := newTestServer(t, &stubScraper{article: candidate})
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{"url":"https://example.com/news"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid DMM Eikaiwa article URL", errorOf(t, w))
	})

	t.Run("scrape failure", func(t *testing.T) {
		s := newTestServer(t, &stubScraper{err: errors.New("could not extract title")})
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{"url":"`+articleURL+`"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Failed to scrape article: could not extract title", errorOf(t, w))
	})

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, &stubScraper{article: candidate})
		w := s.do(t, http.MethodPost, "/api/articles/scrape", `{"url":"`+articleURL+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got models.ScrapedArticle
		decode(t, w, &got)
		assert.Equal(t, articleURL, got.URL)
		assert.Equal(t, candidate.Title, got.Title)
		assert.Equal(t, candidate.Questions, got.Questions)

		// nothing is persisted
		w = s.do(t, http.MethodGet, "/api/articles", "")
		assert.JSONEq(t, `{"articles": []}`, w.Body.String())
	})
}
