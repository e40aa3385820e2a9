package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/nitesh/article_service/internal/db"
	"github.com/nitesh/article_service/internal/store"
	"github.com/nitesh/article_service/pkg/models"
)

const (
	MsgArticleCreated = "Article created successfully"
	MsgArticleUpdated = "Article updated successfully"
	MsgArticleDeleted = "Article deleted successfully"
)

// ArticleStore is the repository the service writes through. Find methods
// return nil, nil for a missing article.
type ArticleStore interface {
	FindAll(ctx context.Context) ([]*models.Article, error)
	FindByID(ctx context.Context, id string) (*models.Article, error)
	FindByIDWithQuestions(ctx context.Context, id string) (*models.ArticleDetail, error)
	Create(ctx context.Context, a *models.Article, questions []*models.Question) error
	Update(ctx context.Context, id string, a *models.Article, questions []*models.Question) error
	Delete(ctx context.Context, id string) error
}

// ArticleInput is what a caller submits on create and update. The order of
// Questions becomes their sort order.
type ArticleInput struct {
	URL       string
	Body      string
	StudiedAt dbtypes.Date
	Questions []models.QuestionInput
}

// Confirmation is returned by successful writes.
type Confirmation struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

type Service struct {
	repo   ArticleStore
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithIDGenerator replaces the uuid id source.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithClock replaces time.Now.
func WithClock(f func() time.Time) Option {
	return func(s *Service) { s.now = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo ArticleStore, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListArticles(ctx context.Context) ([]*models.Article, error) {
	return s.repo.FindAll(ctx)
}

// GetArticle returns the article with its questions ordered by sort, or
// ErrArticleNotFound.
func (s *Service) GetArticle(ctx context.Context, id string) (*models.ArticleDetail, error) {
	detail, err := s.repo.FindByIDWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ErrArticleNotFound
	}
	return detail, nil
}

func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (*Confirmation, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	id := s.newID()
	article := &models.Article{
		ID:        id,
		URL:       in.URL,
		Title:     DeriveTitle(in.Body),
		Body:      in.Body,
		StudiedAt: in.StudiedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	questions := s.buildQuestions(id, in.Questions, now)

	if err := s.repo.Create(ctx, article, questions); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.logger.Debug("article created", "id", id, "questions", len(questions))
	return &Confirmation{ID: id, Message: MsgArticleCreated}, nil
}

// UpdateArticle replaces the article's fields and its whole question set.
// A missing article fails with ErrArticleNotFound before anything is written.
func (s *Service) UpdateArticle(ctx context.Context, id string, in ArticleInput) (*Confirmation, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	if existing == nil {
		return nil, ErrArticleNotFound
	}

	now := s.now()
	if now.Before(existing.CreatedAt) {
		now = existing.CreatedAt
	}
	article := &models.Article{
		ID:        id,
		URL:       in.URL,
		Title:     DeriveTitle(in.Body),
		Body:      in.Body,
		StudiedAt: in.StudiedAt,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}
	questions := s.buildQuestions(id, in.Questions, now)

	if err := s.repo.Update(ctx, id, article, questions); err != nil {
		// deleted between the lookup and the write
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("update article: %w", err)
	}
	s.logger.Debug("article updated", "id", id, "questions", len(questions))
	return &Confirmation{Message: MsgArticleUpdated}, nil
}

func (s *Service) DeleteArticle(ctx context.Context, id string) (*Confirmation, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	if existing == nil {
		return nil, ErrArticleNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("delete article: %w", err)
	}
	s.logger.Debug("article deleted", "id", id)
	return &Confirmation{Message: MsgArticleDeleted}, nil
}

func (s *Service) buildQuestions(articleID string, inputs []models.QuestionInput, now time.Time) []*models.Question {
	questions := make([]*models.Question, 0, len(inputs))
	for i, in := range inputs {
		questions = append(questions, &models.Question{
			ID:        s.newID(),
			ArticleID: articleID,
			Sort:      i + 1,
			Body:      in.Question,
			Answer:    in.Answer,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return questions
}

func validate(in ArticleInput) error {
	var missing []string
	if strings.TrimSpace(in.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(in.Body) == "" {
		missing = append(missing, "body")
	}
	if in.StudiedAt.IsZero() {
		missing = append(missing, "studied_at")
	}
	if in.Questions == nil {
		missing = append(missing, "questions")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
