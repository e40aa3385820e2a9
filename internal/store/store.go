package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nitesh/article_service/pkg/models"
)

// ErrNotFound is returned by Update and Delete when no article row matched.
// The transaction is rolled back and nothing is changed.
var ErrNotFound = errors.New("store: article not found")

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is the article repository. All queries are written with "?"
// placeholders and rebound for the configured driver.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sql.DB, driverName string) *Store {
	return &Store{db: sqlx.NewDb(db, driverName)}
}

// OpenSQLite opens a sqlite database with foreign keys enabled. Pass
// ":memory:" for a private in-memory database; it is pinned to one
// connection since every sqlite connection gets its own memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

const articleColumns = `id, url, title, body, studied_at, created_at, updated_at`

const questionColumns = `id, article_id, sort, body, answer, created_at, updated_at`

const insertQuestion = `
INSERT INTO questions (id, article_id, sort, body, answer, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (p *Store) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// FindAll returns every article, most recently studied first. Articles
// studied on the same day keep insertion order.
func (p *Store) FindAll(ctx context.Context) ([]*models.Article, error) {
	rows := []*models.Article{}
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY studied_at DESC, seq ASC`
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	return rows, nil
}

// FindByID returns nil, nil when the article does not exist.
func (p *Store) FindByID(ctx context.Context, id string) (*models.Article, error) {
	return getArticle(ctx, p.db, id)
}

// FindByIDWithQuestions reads the article and its questions in one
// transaction. It returns nil, nil when the article does not exist.
func (p *Store) FindByIDWithQuestions(ctx context.Context, id string) (*models.ArticleDetail, error) {
	var detail *models.ArticleDetail
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		a, err := getArticle(ctx, tx, id)
		if err != nil || a == nil {
			return err
		}
		questions := []*models.Question{}
		query := tx.Rebind(`SELECT ` + questionColumns + ` FROM questions WHERE article_id = ? ORDER BY sort ASC`)
		if err := tx.SelectContext(ctx, &questions, query, id); err != nil {
			return fmt.Errorf("select questions article_id=%s: %w", id, err)
		}
		detail = &models.ArticleDetail{Article: *a, Questions: questions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Create inserts the article and all of its questions as one unit.
// Question sort values are assigned 1..n from slice order.
func (p *Store) Create(ctx context.Context, a *models.Article, questions []*models.Question) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt := tx.Rebind(`
INSERT INTO articles (id, url, title, body, studied_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
		_, err := tx.ExecContext(ctx, stmt,
			a.ID,
			a.URL,
			a.Title,
			a.Body,
			a.StudiedAt,
			a.CreatedAt.UTC(),
			a.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert article id=%s: %w", a.ID, err)
		}
		return insertQuestions(ctx, tx, a.ID, questions)
	})
}

// Update overwrites the article's mutable fields and replaces its whole
// question set. id and created_at are never touched.
func (p *Store) Update(ctx context.Context, id string, a *models.Article, questions []*models.Question) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt := tx.Rebind(`
UPDATE articles SET url = ?, title = ?, body = ?, studied_at = ?, updated_at = ?
WHERE id = ?
`)
		res, err := tx.ExecContext(ctx, stmt, a.URL, a.Title, a.Body, a.StudiedAt, a.UpdatedAt.UTC(), id)
		if err != nil {
			return fmt.Errorf("update article id=%s: %w", id, err)
		}
		if err := requireRow(res, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM questions WHERE article_id = ?`), id); err != nil {
			return fmt.Errorf("delete questions article_id=%s: %w", id, err)
		}
		return insertQuestions(ctx, tx, id, questions)
	})
}

// Delete removes the article and its questions.
func (p *Store) Delete(ctx context.Context, id string) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		// explicit even with ON DELETE CASCADE; sqlite only honours it with foreign_keys on
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM questions WHERE article_id = ?`), id); err != nil {
			return fmt.Errorf("delete questions article_id=%s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM articles WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete article id=%s: %w", id, err)
		}
		return requireRow(res, id)
	})
}

// withTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (p *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func getArticle(ctx context.Context, q queryer, id string) (*models.Article, error) {
	var a models.Article
	query := q.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE id = ?`)
	err := q.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select article id=%s: %w", id, err)
	}
	return &a, nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, articleID string, questions []*models.Question) error {
	stmt := tx.Rebind(insertQuestion)
	for i, q := range questions {
		_, err := tx.ExecContext(ctx, stmt,
			q.ID,
			articleID,
			i+1,
			q.Body,
			q.Answer,
			q.CreatedAt.UTC(),
			q.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert question id=%s sort=%d: %w", q.ID, i+1, err)
		}
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected id=%s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}
	return nil
}
