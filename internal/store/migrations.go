package store

import (
	"database/sql"
	"fmt"
)

// Ids are TEXT in both dialects so a malformed id from a URL is a plain miss
// rather than a cast error. seq is assigned by the database on insert and
// orders same-day articles by insertion.
var schemas = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS articles(
  id TEXT PRIMARY KEY,
  seq BIGINT GENERATED ALWAYS AS IDENTITY,
  url TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  studied_at DATE NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_studied_at ON articles(studied_at DESC, seq ASC)`,
		`CREATE TABLE IF NOT EXISTS questions(
  id TEXT PRIMARY KEY,
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  sort INTEGER NOT NULL,
  body TEXT NOT NULL,
  answer TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (article_id, sort)
)`,
	},
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS articles(
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  url TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  studied_at DATE NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_studied_at ON articles(studied_at DESC, seq ASC)`,
		`CREATE TABLE IF NOT EXISTS questions(
  id TEXT PRIMARY KEY,
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  sort INTEGER NOT NULL,
  body TEXT NOT NULL,
  answer TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (article_id, sort)
)`,
	},
}

// RunMigrations creates the articles and questions tables for the given
// driver. Every statement is idempotent.
func RunMigrations(db *sql.DB, driverName string) error {
	stmts, ok := schemas[driverName]
	if !ok {
		return fmt.Errorf("migrations: unsupported driver %q", driverName)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	return nil
}
