package api

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input limits, counted in characters rather than bytes so multibyte text is
// not penalized. Message and query are plain length caps; city names are
// additionally restricted to a conservative character set because they are
// forwarded verbatim as an upstream query parameter.
const (
	MessageMaxLen = 2000
	QueryMaxLen   = 500
	CityMaxLen    = 80
)

var cityRe = regexp.MustCompile(`^[A-Za-z0-9 \-.,']+$`)

// ValidateMessage checks a chat message and returns a human-readable reason
// string if it is unusable, or "" if it is fine. Pure function, no side effects.
func ValidateMessage(message string) string {
	s := strings.TrimSpace(message)
	if s == "" {
		return "Message cannot be empty."
	}
	if utf8.RuneCountInString(s) > MessageMaxLen {
		return fmt.Sprintf("Message too long (max %d chars).", MessageMaxLen)
	}
	return ""
}

// ValidateQuery checks a search query the same way ValidateMessage checks a
// chat message, with a tighter length cap.
func ValidateQuery(query string) string {
	s := strings.TrimSpace(query)
	if s == "" {
		return "Query cannot be empty."
	}
	if utf8.RuneCountInString(s) > QueryMaxLen {
		return fmt.Sprintf("Query too long (max %d chars).", QueryMaxLen)
	}
	return ""
}

// ValidateCity checks a city name against the length cap and the allowed
// character set.
func ValidateCity(city string) string {
	s := strings.TrimSpace(city)
	if s == "" {
		return "City cannot be empty."
	}
	if utf8.RuneCountInString(s) > CityMaxLen {
		return fmt.Sprintf("City too long (max %d chars).", CityMaxLen)
	}
	if !cityRe.MatchString(s) {
		return "City contains invalid characters."
	}
	return ""
}

// SanitizeText removes angle-bracket characters and trims surrounding
// whitespace. This is best-effort cosmetic cleanup before text is embedded in
// prompts or replies, not a security boundary: "<script>" becomes "script",
// nothing more.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ReplaceAll(text, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return strings.TrimSpace(s)
}
