package scrape

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nitesh/article_service/pkg/models"
)

var (
	ErrTitleNotFound     = errors.New("could not extract article title")
	ErrBodyNotFound      = errors.New("could not extract article body or body too short")
	ErrQuestionsNotFound = errors.New("could not extract discussion questions")
)

const (
	minTitleLen     = 21
	minParagraphLen = 31
	minBodyLen      = 100
	minQuestionLen  = 16
	maxQuestions    = 5
)

var questionPattern = regexp.MustCompile(`\d+\.\s*([^?]+\?)`)

var instructionMarkers = []string{"Exercise", "Read the article", "Repeat each paragraph"}

var titleNoise = []string{"Exercise", "Vocabulary", "Repeat", "Read the article"}

// Extract parses a daily-news page. The title is the first long English
// span, the body comes from exercise 2 and the questions from exercise 3.
func Extract(url string, page io.Reader) (*models.ScrapedArticle, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := extractTitle(doc)
	if title == "" {
		return nil, ErrTitleNotFound
	}

	body := extractBody(doc)
	if utf8.RuneCountInString(body) < minBodyLen {
		return nil, ErrBodyNotFound
	}

	questions := extractQuestions(doc)
	if len(questions) == 0 {
		return nil, ErrQuestionsNotFound
	}

	return &models.ScrapedArticle{
		URL:       url,
		Title:     title,
		Body:      body,
		Questions: questions,
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	var title string
	doc.Find(`[lang="en"] span`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) < minTitleLen || containsAny(text, titleNoise) {
			return true
		}
		title = text
		return false
	})
	return title
}

func extractBody(doc *goquery.Document) string {
	var paragraphs []string
	doc.Find("#windowexercise-2 p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) < minParagraphLen {
			return
		}
		if containsAny(text, instructionMarkers) || hasJapanese(text) {
			return
		}
		paragraphs = append(paragraphs, strings.Join(strings.Fields(text), " "))
	})
	return strings.Join(paragraphs, "\n\n")
}

func extractQuestions(doc *goquery.Document) []string {
	section := doc.Find("#windowexercise-3")
	if section.Length() == 0 {
		return nil
	}

	var questions []string
	for _, m := range questionPattern.FindAllStringSubmatch(section.Text(), -1) {
		q := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(q) < minQuestionLen || strings.Contains(q, "based on the following") {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
