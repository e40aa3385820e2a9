package models

import (
	"time"

	dbtypes "github.com/nitesh/article_service/internal/db"
)

// Article is a studied piece of text. Title is derived from the first line of
// Body and persisted on every write.
type Article struct {
	ID        string       `db:"id" json:"id"`
	Title     string       `db:"title" json:"title"`
	URL       string       `db:"url" json:"url"`
	Body      string       `db:"body" json:"body"`
	StudiedAt dbtypes.Date `db:"studied_at" json:"studied_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Question is a comprehension question owned by exactly one Article.
// Sort is 1-based and dense within the article.
type Question struct {
	ID        string    `db:"id" json:"id"`
	ArticleID string    `db:"article_id" json:"article_id"`
	Sort      int       `db:"sort" json:"sort"`
	Body      string    `db:"body" json:"body"`
	Answer    string    `db:"answer" json:"answer"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ArticleDetail is an article with its questions ordered by Sort.
type ArticleDetail struct {
	Article
	Questions []*Question `json:"questions"`
}

// QuestionInput is one caller-submitted question; its position in the
// submitted slice becomes its sort value.
type QuestionInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScrapedArticle is a candidate produced by the scrape adapter. It is never
// stored directly.
type ScrapedArticle struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Questions []string `json:"questions"`
}
