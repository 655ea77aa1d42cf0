package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
)

const weatherBody = `{
	"name": "London",
	"sys": {"country": "GB"},
	"main": {"temp": 18.5, "feels_like": 17.9, "humidity": 72},
	"wind": {"speed": 4.1},
	"weather": [{"description": "scattered clouds"}]
}`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewService(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultUnits: "metric",
	}, srv.Client(), zerolog.Nop())

	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, srv, &sleeps
}

func TestLookupSuccess(t *testing.T) {
	var attempts int64
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Write([]byte(weatherBody))
	})

	out := s.Lookup(context.Background(), "London", "metric")
	require.True(t, out.OK)
	assert.Equal(t, "London", out.City)
	assert.Equal(t, "GB", out.Country)
	assert.Equal(t, 18.5, out.Temp)
	assert.Equal(t, 17.9, out.FeelsLike)
	assert.Equal(t, 72, out.Humidity)
	assert.Equal(t, 4.1, out.WindSpeed)
	assert.Equal(t, "scattered clouds", out.Conditions)
	assert.Equal(t, "metric", out.Units)
	assert.EqualValues(t, 1, attempts)
}

func TestLookupRetriesOnRateLimit(t *testing.T) {
	var attempts int64
	s, _, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(weatherBody))
	})

	out := s.Lookup(context.Background(), "London", "metric")
	require.True(t, out.OK)
	assert.EqualValues(t, 3, attempts)
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 800*time.Millisecond, (*sleeps)[0])
	assert.Equal(t, 1600*time.Millisecond, (*sleeps)[1])
}

func TestLookupRateLimitExhaustion(t *testing.T) {
	var attempts int64
	s, _, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	out := s.Lookup(context.Background(), "London", "")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrInternal, out.Error)
	assert.EqualValues(t, 3, attempts)
	assert.Len(t, *sleeps, 3)
}

func TestLookupNotFoundDoesNotRetry(t *testing.T) {
	var attempts int64
	s, _, sleeps := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	out := s.Lookup(context.Background(), "Atlantis", "metric")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrNotFound, out.Error)
	assert.Contains(t, out.Detail, "Atlantis")
	assert.EqualValues(t, 1, attempts)
	assert.Empty(t, *sleeps)
}

func TestLookupAuthError(t *testing.T) {
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	out := s.Lookup(context.Background(), "London", "metric")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrAuth, out.Error)
}

func TestLookupUpstreamError(t *testing.T) {
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	out := s.Lookup(context.Background(), "London", "metric")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrUpstream, out.Error)
	assert.Contains(t, out.Detail, "502")
}

func TestLookupInvalidCityNoNetworkCall(t *testing.T) {
	var attempts int64
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
	})

	for _, city := range []string{"", "   ", "<London>", "Tokyo/Japan"} {
		out := s.Lookup(context.Background(), city, "metric")
		assert.False(t, out.OK)
		assert.Equal(t, api.ErrInvalidInput, out.Error)
	}
	assert.EqualValues(t, 0, attempts)
}

func TestLookupMissingAPIKey(t *testing.T) {
	s := NewService(Config{BaseURL: "http://unused.invalid"}, http.DefaultClient, zerolog.Nop())
	out := s.Lookup(context.Background(), "London", "metric")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrServerConfiguration, out.Error)
}

func TestLookupUnknownUnitsFallBackToDefault(t *testing.T) {
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Write([]byte(weatherBody))
	})

	out := s.Lookup(context.Background(), "London", "kelvin")
	require.True(t, out.OK)
	assert.Equal(t, "metric", out.Units)
}

func TestLookupRetriesOnTransportError(t *testing.T) {
	// A server that is immediately closed produces connection errors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := srv.Client()
	srv.Close()

	s := NewService(Config{APIKey: "k", BaseURL: srv.URL, DefaultUnits: "metric"}, client, zerolog.Nop())
	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	out := s.Lookup(context.Background(), "London", "metric")
	assert.False(t, out.OK)
	assert.Equal(t, api.ErrInternal, out.Error)
	assert.Len(t, sleeps, 3)
}

func TestLookupPartialPayload(t *testing.T) {
	s, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Nowhere"}`))
	})

	out := s.Lookup(context.Background(), "Nowhere", "metric")
	require.True(t, out.OK)
	assert.Equal(t, "Nowhere", out.City)
	assert.Empty(t, out.Country)
	assert.Empty(t, out.Conditions)
	assert.Zero(t, out.Temp)
}
