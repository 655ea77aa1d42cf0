// Package search implements web search by scraping an HTML results page.
// There is no API key involved: the service fetches the page with a browser
// user agent, runs an ordered selector-fallback chain over the markup, and,
// by deliberate policy, substitutes canned results instead of surfacing an
// error when scraping yields nothing or fails outright.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
)

const (
	// DefaultBaseURL is the search endpoint the scraper targets.
	DefaultBaseURL = "https://www.google.com/search"

	// politenessDelay is waited before every fetch.
	politenessDelay = 500 * time.Millisecond

	minResults = 1
	maxResults = 10
)

// Config holds the search service's immutable settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Selectors SelectorChain
}

// Service performs scraping searches. Construct with NewService.
type Service struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	// wait is swapped out in tests to observe the politeness delay without
	// paying it.
	wait func(ctx context.Context) error
}

// NewService creates a search service using the shared HTTP client.
func NewService(cfg Config, client *http.Client, log zerolog.Logger) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Selectors.Containers) == 0 {
		cfg.Selectors = DefaultSelectorChain()
	}

	limiter := rate.NewLimiter(rate.Every(politenessDelay), 1)
	// Consume the initial burst token so concurrent first fetches are spaced
	// out too.
	limiter.Allow()

	s := &Service{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		log:     log.With().Str("component", "search").Logger(),
	}
	s.wait = s.politenessWait
	return s
}

// politenessWait pauses the fixed delay before a fetch. Every fetch pays the
// full delay regardless of how long the service has been idle; the limiter
// additionally spaces out concurrent callers.
func (s *Service) politenessWait(ctx context.Context) error {
	select {
	case <-time.After(politenessDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

// Search runs a query and returns up to numResults results, clamped to
// [1,10]. Scraping failure and empty scrapes both come back as OK with canned
// fallback content; callers only ever see an error tag for invalid input.
func (s *Service) Search(ctx context.Context, query string, numResults int) api.SearchOutcome {
	s.log.Info().Str("query", truncate(query, 50)).Msg("performing web search")

	if reason := api.ValidateQuery(query); reason != "" {
		s.log.Warn().Str("reason", reason).Msg("invalid search query")
		return api.SearchOutcome{Error: api.ErrValidation, Detail: reason}
	}

	cleanQuery := api.SanitizeText(strings.TrimSpace(query))
	if numResults < minResults {
		numResults = minResults
	} else if numResults > maxResults {
		numResults = maxResults
	}

	results, err := s.scrape(ctx, cleanQuery, numResults)
	if err != nil {
		s.log.Error().Err(err).Msg("search scrape failed, serving fallback results")
		return api.SearchOutcome{OK: true, Results: errorFallback(cleanQuery), Query: cleanQuery}
	}

	if len(results) == 0 {
		s.log.Info().Msg("no search results found, serving fallback results")
		results = emptyFallback(cleanQuery)
	}
	if len(results) > numResults {
		results = results[:numResults]
	}

	return api.SearchOutcome{OK: true, Results: results, Query: cleanQuery}
}

// scrape fetches and parses one results page.
func (s *Service) scrape(ctx context.Context, query string, numResults int) ([]api.SearchResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, fmt.Errorf("politeness wait cancelled: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	results := parsePage(doc, s.cfg.Selectors)
	s.log.Info().Int("count", len(results)).Msg("parsed search results")
	return results, nil
}

// emptyFallback is substituted when a scrape succeeds but yields nothing.
func emptyFallback(query string) []api.SearchResult {
	return []api.SearchResult{
		{
			Title:   fmt.Sprintf("Search for '%s' - Limited Results", query),
			Snippet: "Google search scraping is currently limited. For detailed information about this topic, try using the chat feature to ask the AI assistant.",
			URL:     "https://www.google.com/search?q=" + url.QueryEscape(query),
		},
		{
			Title:   fmt.Sprintf("AI Alternative: Ask about '%s'", query),
			Snippet: "The AI chat feature can provide comprehensive information about your search topic with detailed explanations and current knowledge.",
			URL:     "https://www.google.com",
		},
	}
}

// errorFallback is substituted when fetching or parsing fails entirely.
func errorFallback(query string) []api.SearchResult {
	return []api.SearchResult{
		{
			Title:   fmt.Sprintf("Search results for '%s' - Scraping Limited", query),
			Snippet: "Google search scraping is currently limited. This is a fallback result. For real-time search, consider using the chat feature to ask about your topic.",
			URL:     "https://www.google.com/search?q=" + url.QueryEscape(query),
		},
		{
			Title:   fmt.Sprintf("Alternative: Ask the AI about '%s'", query),
			Snippet: "You can use the chat feature to ask the AI assistant about your search topic for detailed information.",
			URL:     "https://www.google.com",
		},
	}
}

// truncate shortens s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
