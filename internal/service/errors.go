package service

import "errors"

// Sentinel errors surfaced to the API boundary. Anything else coming out of
// the service is a storage failure.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrArticleNotFound = errors.New("article not found")

	ErrUnsupportedURL    = errors.New("invalid DMM Eikaiwa article URL")
	ErrScrapeFailed      = errors.New("failed to scrape article")
	ErrScrapeUnavailable = errors.New("scraping feature not available")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrArticleNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
