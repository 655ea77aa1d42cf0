package search

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
)

const noDescription = "No description available"

// parsePage extracts search results from a results page using the configured
// selector chain. It returns whatever it could extract; an empty slice is a
// valid answer and the caller decides what to substitute.
func parsePage(doc *goquery.Document, chain SelectorChain) []api.SearchResult {
	blocks := findBlocks(doc, chain)

	results := make([]api.SearchResult, 0, len(blocks))
	for _, block := range blocks {
		if r, ok := extractResult(block, chain); ok {
			results = append(results, r)
		}
	}
	return results
}

// findBlocks tries each container selector in priority order; the first one
// yielding any matches wins. If none match it falls back to locating headings
// and walking up to their nearest div ancestor.
func findBlocks(doc *goquery.Document, chain SelectorChain) []*goquery.Selection {
	for _, selector := range chain.Containers {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return splitSelection(sel)
		}
	}

	var blocks []*goquery.Selection
	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		parent := h.Closest("div")
		if parent.Length() > 0 {
			blocks = append(blocks, parent)
		}
	})
	return blocks
}

func splitSelection(sel *goquery.Selection) []*goquery.Selection {
	blocks := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s)
	})
	return blocks
}

// extractResult pulls a title, URL and snippet out of one candidate block.
// Blocks without a usable title or an http(s) URL are discarded.
func extractResult(block *goquery.Selection, chain SelectorChain) (api.SearchResult, bool) {
	title := strings.TrimSpace(block.Find("h3").First().Text())
	if title == "" {
		title = strings.TrimSpace(block.Find(strings.Join(chain.Titles, ", ")).First().Text())
	}
	if title == "" {
		return api.SearchResult{}, false
	}

	href, ok := block.Find("a[href]").First().Attr("href")
	if !ok || href == "" {
		return api.SearchResult{}, false
	}
	link, ok := cleanURL(href)
	if !ok {
		return api.SearchResult{}, false
	}

	snippet := ""
	for _, selector := range chain.Snippets {
		if s := strings.TrimSpace(block.Find(selector).First().Text()); s != "" {
			snippet = s
			break
		}
	}
	if snippet == "" {
		snippet = noDescription
	} else {
		snippet = api.SanitizeText(snippet)
	}

	return api.SearchResult{
		Title:   api.SanitizeText(title),
		Snippet: snippet,
		URL:     link,
	}, true
}

// cleanURL unwraps the engine's "/url?q=..." redirect wrapper, skips internal
// search-relative links, and rejects anything that is not http(s).
func cleanURL(href string) (string, bool) {
	if strings.HasPrefix(href, "/url?q=") {
		target := strings.TrimPrefix(href, "/url?q=")
		if i := strings.Index(target, "&"); i >= 0 {
			target = target[:i]
		}
		if unescaped, err := url.QueryUnescape(target); err == nil {
			href = unescaped
		} else {
			href = target
		}
	} else if strings.HasPrefix(href, "/search?") {
		return "", false
	}

	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return "", false
	}
	return href, true
}
