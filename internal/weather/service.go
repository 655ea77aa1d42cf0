// Package weather implements the current-weather lookup against the
// OpenWeatherMap API: input validation, a retrying fetch for rate limits and
// transient network failures, and a flat reshape of the provider payload.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
)

const (
	// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

	maxRetries  = 3
	backoffBase = 800 * time.Millisecond
)

// Config holds the weather service's immutable settings.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultUnits string
}

// Service performs weather lookups. Construct with NewService; the zero value
// is not usable.
type Service struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// NewService creates a weather service using the shared HTTP client.
func NewService(cfg Config, client *http.Client, log zerolog.Logger) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultUnits != "metric" && cfg.DefaultUnits != "imperial" {
		cfg.DefaultUnits = "metric"
	}
	return &Service{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "weather").Logger(),
		sleep:  time.Sleep,
	}
}

// Lookup returns the current weather for a city. It never returns a Go error:
// every failure mode is folded into the outcome's error tag and detail.
func (s *Service) Lookup(ctx context.Context, city, units string) api.WeatherOutcome {
	s.log.Info().Str("city", city).Str("units", units).Msg("get_weather called")

	if s.cfg.APIKey == "" {
		s.log.Error().Msg("missing OpenWeatherMap API key; aborting request")
		return api.WeatherOutcome{Error: api.ErrServerConfiguration, Detail: "Missing API key"}
	}

	if reason := api.ValidateCity(city); reason != "" {
		s.log.Warn().Str("city", city).Str("reason", reason).Msg("invalid city input")
		return api.WeatherOutcome{Error: api.ErrInvalidInput, Detail: reason}
	}

	if units != "metric" && units != "imperial" {
		units = s.cfg.DefaultUnits
	}

	params := url.Values{}
	params.Set("q", strings.TrimSpace(city))
	params.Set("appid", s.cfg.APIKey)
	params.Set("units", units)

	resp, err := s.fetchWithRetry(ctx, params)
	if err != nil {
		s.log.Error().Err(err).Msg("weather fetch failed")
		return api.WeatherOutcome{Error: api.ErrInternal, Detail: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return s.reshape(resp, units)
	case http.StatusUnauthorized:
		s.log.Error().Msg("auth error from OpenWeatherMap; check API key")
		return api.WeatherOutcome{Error: api.ErrAuth, Detail: "Authentication failed with upstream"}
	case http.StatusNotFound:
		s.log.Warn().Str("city", city).Msg("city not found")
		return api.WeatherOutcome{Error: api.ErrNotFound, Detail: fmt.Sprintf("No weather data for %s", strings.TrimSpace(city))}
	default:
		s.log.Error().Int("status", resp.StatusCode).Msg("unexpected upstream status")
		return api.WeatherOutcome{Error: api.ErrUpstream, Detail: fmt.Sprintf("Status %d", resp.StatusCode)}
	}
}

// fetchWithRetry issues the GET with up to maxRetries attempts. HTTP 429 and
// transport-level failures back off exponentially (base * 2^(attempt-1)) and
// retry; every other status returns immediately. Attempts are sequential.
func (s *Service) fetchWithRetry(ctx context.Context, params url.Values) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create weather request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			wait := backoff(attempt)
			s.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("transient HTTP error, retrying")
			s.sleep(wait)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := backoff(attempt)
			s.log.Warn().Int("attempt", attempt).Dur("backoff", wait).Msg("rate limited (429), backing off")
			s.sleep(wait)
			continue
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	// Only reachable when every attempt was rate-limited.
	return nil, errors.New("retries exhausted without a usable response")
}

func backoff(attempt int) time.Duration {
	return backoffBase * time.Duration(1<<(attempt-1))
}

// reshape flattens the provider's nested JSON into a WeatherOutcome. Missing
// nested objects decode to zero values, so partial payloads never panic.
func (s *Service) reshape(resp *http.Response, units string) api.WeatherOutcome {
	var payload struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.log.Error().Err(err).Msg("failed to decode weather payload")
		return api.WeatherOutcome{Error: api.ErrInternal, Detail: err.Error()}
	}

	out := api.WeatherOutcome{
		OK:        true,
		City:      payload.Name,
		Country:   payload.Sys.Country,
		Temp:      payload.Main.Temp,
		FeelsLike: payload.Main.FeelsLike,
		Humidity:  payload.Main.Humidity,
		WindSpeed: payload.Wind.Speed,
		Units:     units,
	}
	if len(payload.Weather) > 0 {
		out.Conditions = payload.Weather[0].Description
	}

	s.log.Info().Str("city", out.City).Str("units", units).Msg("weather fetch successful")
	return out
}
