// Package api defines the public result shapes returned by every gateway
// operation, together with the error taxonomy shared across the tool and
// webhook frontends. These types provide a stable, provider-agnostic contract:
// callers always receive exactly one of a success payload or an error tag plus
// a human-readable detail string, never a raw exception.
package api

// Error tags returned in the Error field of every outcome type.
// These are plain strings rather than Go error types because they cross the
// tool-call protocol boundary and must survive JSON round-trips unchanged.
const (
	// ErrValidation indicates the caller's input failed validation (chat/search).
	ErrValidation = "validation"
	// ErrInvalidInput indicates the caller's input failed validation (weather).
	ErrInvalidInput = "invalid_input"
	// ErrServerConfiguration indicates a required secret is missing. Fatal for
	// the call, not the process.
	ErrServerConfiguration = "server_configuration"
	// ErrAuth indicates the upstream provider rejected our credentials.
	ErrAuth = "auth"
	// ErrNotFound indicates the upstream provider had no data for the request.
	ErrNotFound = "not_found"
	// ErrUpstream indicates an unexpected upstream status code.
	ErrUpstream = "upstream"
	// ErrInternal indicates an unexpected local failure.
	ErrInternal = "internal"
)

// Usage holds the token-usage estimate for a chat completion.
// The counts are character counts of the prompt and completion text, which is
// explicitly an approximation and not a real tokenizer.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResult is the outcome of a single chat completion call.
type ChatResult struct {
	OK       bool   `json:"ok"`
	Response string `json:"response,omitempty"`
	Usage    *Usage `json:"usage,omitempty"`
	Error    string `json:"error,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// SearchResult is a single web search hit. Immutable once produced, whether by
// parsing a live results page or by the fallback generator.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchOutcome is the outcome of a search_web call.
type SearchOutcome struct {
	OK      bool           `json:"ok"`
	Results []SearchResult `json:"results"`
	Query   string         `json:"query,omitempty"`
	Error   string         `json:"error,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// WeatherOutcome is the outcome of a get_weather call. The payload fields are
// a flat reshape of the provider's nested response.
type WeatherOutcome struct {
	OK      bool   `json:"ok"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`

	// Numeric readings serialize even at zero; 0 degrees is real data.
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`

	Conditions string `json:"conditions,omitempty"`
	Units      string `json:"units,omitempty"`
	Error      string `json:"error,omitempty"`
	Detail     string `json:"detail,omitempty"`
}
