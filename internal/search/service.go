// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package search implements term search over published pages, published
// events and the documents the caller may read. Events are only searched
// for members whose tier includes them.
//
// Matching is case-insensitive substring counting per term. A hit in the
// title scores three times a hit in the body. Results are cached per query
// and caller visibility until any indexed collection changes.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/cache"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/documents"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

const (
	titleWeight   = 3
	snippetRadius = 80
	maxTerms      = 8
	defaultLimit  = 20
)

// ErrEmptyQuery is returned when the query has no searchable terms.
var ErrEmptyQuery = errors.New("search query is empty")

// PageSource lists published pages. cms.Service implements it.
type PageSource interface {
	ListPublished(ctx context.Context, opts store.ListOptions) ([]*models.Page, int, error)
}

// EventSource lists events by status. events.Service implements it.
type EventSource interface {
	List(ctx context.Context, status string, opts store.ListOptions) ([]*models.Event, int, error)
}

// DocumentSource lists documents readable by a subject. documents.Service implements it.
type DocumentSource interface {
	List(ctx context.Context, subject *auth.Subject, filter documents.ListFilter, opts store.ListOptions) ([]*models.DocumentFile, int, error)
}

// FeatureChecker gates premium pages and events. membership.Provider implements it.
type FeatureChecker interface {
	Allowed(ctx context.Context, subject *auth.Subject, feature string) bool
}

// Query is one search request.
type Query struct {
	Text  string
	Types []string // empty means all
	Limit int
}

// Service runs searches.
type Service struct {
	pages      PageSource
	events     EventSource
	docs       DocumentSource
	features   FeatureChecker
	cache      *cache.Cache[[]models.SearchResult]
	maxResults int
}

// NewService creates the search service.
func NewService(pages PageSource, events EventSource, docs DocumentSource, features FeatureChecker, cfg config.SearchConfig) *Service {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		pages:      pages,
		events:     events,
		docs:       docs,
		features:   features,
		cache:      cache.New[[]models.SearchResult]("search", ttl, 1000),
		maxResults: maxResults,
	}
}

// Invalidate drops every cached result. Register it with the OnChange hooks
// of the searched services.
func (s *Service) Invalidate() {
	s.cache.Clear()
}

// Close stops the result cache.
func (s *Service) Close() {
	s.cache.Close()
}

type cacheKey struct {
	Terms   []string `json:"t"`
	Types   []string `json:"y"`
	Limit   int      `json:"l"`
	Subject string   `json:"s"`
	Admin   bool     `json:"a"`
	Premium bool     `json:"p"`
	Events  bool     `json:"e"`
}

// Search returns results ordered by score, best first.
func (s *Service) Search(ctx context.Context, subject *auth.Subject, q Query) ([]models.SearchResult, error) {
	terms := Terms(q.Text)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > s.maxResults {
		limit = s.maxResults
	}

	premium := s.allowed(ctx, subject, config.FeaturePremiumContent)
	withEvents := s.allowed(ctx, subject, config.FeatureEvents)
	key := cacheKey{Terms: terms, Types: normalizeTypes(q.Types), Limit: limit, Premium: premium, Events: withEvents}
	if subject != nil {
		key.Subject = subject.ID
		key.Admin = subject.IsAdmin()
	}
	cacheID := cache.GenerateKey("search", key)
	if cached, ok := s.cache.Get(cacheID); ok {
		return cached, nil
	}

	var results []models.SearchResult
	if want(key.Types, models.SearchTypePage) {
		r, err := s.searchPages(ctx, terms, premium)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}
	if withEvents && want(key.Types, models.SearchTypeEvent) {
		r, err := s.searchEvents(ctx, terms)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}
	if want(key.Types, models.SearchTypeDocument) {
		r, err := s.searchDocuments(ctx, subject, terms)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return strings.ToLower(results[i].Title) < strings.ToLower(results[j].Title)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	s.cache.Set(cacheID, results)
	return results, nil
}

func (s *Service) allowed(ctx context.Context, subject *auth.Subject, feature string) bool {
	return s.features != nil && s.features.Allowed(ctx, subject, feature)
}

func (s *Service) searchPages(ctx context.Context, terms []string, premium bool) ([]models.SearchResult, error) {
	pages, _, err := s.pages.ListPublished(ctx, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	var out []models.SearchResult
	for _, p := range pages {
		if p.Premium && !premium {
			continue
		}
		body := p.Summary + "\n" + p.Body
		if score := Score(terms, p.Title, body); score > 0 {
			out = append(out, models.SearchResult{
				Type:    models.SearchTypePage,
				ID:      p.ID,
				Title:   p.Title,
				Snippet: Snippet(body, terms),
				URL:     "/pages/" + p.Slug,
				Score:   score,
			})
		}
	}
	return out, nil
}

func (s *Service) searchEvents(ctx context.Context, terms []string) ([]models.SearchResult, error) {
	events, _, err := s.events.List(ctx, models.EventStatusPublished, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	var out []models.SearchResult
	for _, e := range events {
		body := e.Description + "\n" + e.Location
		if score := Score(terms, e.Title, body); score > 0 {
			out = append(out, models.SearchResult{
				Type:    models.SearchTypeEvent,
				ID:      e.ID,
				Title:   e.Title,
				Snippet: Snippet(body, terms),
				URL:     "/events/" + e.ID,
				Score:   score,
			})
		}
	}
	return out, nil
}

func (s *Service) searchDocuments(ctx context.Context, subject *auth.Subject, terms []string) ([]models.SearchResult, error) {
	docs, _, err := s.docs.List(ctx, subject, documents.ListFilter{}, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	var out []models.SearchResult
	for _, d := range docs {
		if score := Score(terms, d.Filename, d.Description); score > 0 {
			out = append(out, models.SearchResult{
				Type:    models.SearchTypeDocument,
				ID:      d.ID,
				Title:   d.Filename,
				Snippet: Snippet(d.Description, terms),
				URL:     "/api/documents/" + d.ID + "/download",
				Score:   score,
			})
		}
	}
	return out, nil
}

// Terms lowercases and splits text into at most eight unique terms.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}

// Score counts term occurrences, weighting title hits by three.
func Score(terms []string, title, body string) float64 {
	title = strings.ToLower(title)
	body = strings.ToLower(body)
	score := 0
	for _, t := range terms {
		score += titleWeight*strings.Count(title, t) + strings.Count(body, t)
	}
	return float64(score)
}

// Snippet returns text around the first term hit in body.
func Snippet(body string, terms []string) string {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return ""
	}
	lower := strings.ToLower(body)
	pos := -1
	for _, t := range terms {
		if i := strings.Index(lower, t); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	// Lowercasing can change byte lengths for some scripts.
	if pos < 0 || pos > len(body) {
		pos = 0
	}

	runes := []rune(body)
	// Convert the byte offset into a rune offset.
	runePos := len([]rune(body[:pos]))
	start := runePos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := runePos + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

func normalizeTypes(types []string) []string {
	var out []string
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case models.SearchTypePage, models.SearchTypeEvent, models.SearchTypeDocument:
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func want(types []string, t string) bool {
	if len(types) == 0 {
		return true
	}
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
