package whatsapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
	"github.com/dileep-u-k/chatbot-gateway/internal/weather"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const inboundBody = `{
	"entry": [{
		"changes": [{
			"value": {
				"messages": [{
					"from": "15551234567",
					"text": {"body": "weather Mumbai"}
				}]
			}
		}]
	}]
}`

type capturedSend struct {
	path string
	auth string
	body map[string]any
}

// newTestAdapter builds the full webhook stack: a fake weather upstream, a
// fake Graph API, and the gin engine with routes mounted.
func newTestAdapter(t *testing.T, weatherHandler http.HandlerFunc) (*gin.Engine, *[]capturedSend) {
	t.Helper()

	weatherSrv := httptest.NewServer(weatherHandler)
	t.Cleanup(weatherSrv.Close)

	var sends []capturedSend
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sends = append(sends, capturedSend{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
			body: body,
		})
		w.Write([]byte(`{"messages":[{"id":"wamid.X"}]}`))
	}))
	t.Cleanup(graphSrv.Close)

	log := zerolog.Nop()
	weatherSvc := weather.NewService(weather.Config{APIKey: "k", BaseURL: weatherSrv.URL}, weatherSrv.Client(), log)
	sender := NewSender(SenderConfig{
		Token:        "graph-token",
		PhoneID:      "10812345",
		APIVersion:   "v17.0",
		GraphBaseURL: graphSrv.URL,
	}, graphSrv.Client(), log)

	adapter := NewAdapter("secret-token", weatherSvc, sender, log)
	engine := gin.New()
	adapter.Register(engine)
	return engine, &sends
}

func okWeather(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"name":"Mumbai","sys":{"country":"IN"},"main":{"temp":30,"feels_like":34,"humidity":80},"wind":{"speed":3.2},"weather":[{"description":"haze"}]}`))
}

func TestVerifySuccess(t *testing.T) {
	engine, _ := newTestAdapter(t, okWeather)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=challenge-123", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "challenge-123", w.Body.String())
}

func TestVerifyRejectsMismatch(t *testing.T) {
	engine, _ := newTestAdapter(t, okWeather)

	cases := []string{
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=c",
		"/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=c",
		"/webhook",
	}
	for _, target := range cases {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusForbidden, w.Code, target)
	}
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestAdapter(t, okWeather)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}

func TestInboundWeatherCommand(t *testing.T) {
	engine, sends := newTestAdapter(t, okWeather)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundBody))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "processed"}`, w.Body.String())

	require.Len(t, *sends, 1)
	send := (*sends)[0]
	assert.Equal(t, "/v17.0/10812345/messages", send.path)
	assert.Equal(t, "Bearer graph-token", send.auth)
	assert.Equal(t, "whatsapp", send.body["messaging_product"])
	assert.Equal(t, "15551234567", send.body["to"])

	text, ok := send.body["text"].(map[string]any)
	require.True(t, ok)
	body, _ := text["body"].(string)
	assert.Contains(t, body, "Weather for Mumbai, IN")
	assert.Contains(t, body, "30.0°C")
	assert.Contains(t, body, "haze")
}

func TestInboundBareCityMessage(t *testing.T) {
	engine, sends := newTestAdapter(t, okWeather)

	payload := strings.Replace(inboundBody, "weather Mumbai", "Mumbai", 1)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, *sends, 1)
}

func TestInboundLookupFailureStillReplies(t *testing.T) {
	engine, sends := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundBody))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, *sends, 1)
	text := (*sends)[0].body["text"].(map[string]any)
	assert.Contains(t, text["body"], "Error:")
}

func TestInboundIgnoresNonText(t *testing.T) {
	engine, sends := newTestAdapter(t, okWeather)

	payload := `{"entry":[{"changes":[{"value":{"messages":[{"from":"1555","text":{"body":"  "}}]}}]}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, *sends)
}

func TestInboundMalformedBody(t *testing.T) {
	engine, _ := newTestAdapter(t, okWeather)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestInboundDeliveryFailureDoesNotFailRequest(t *testing.T) {
	weatherSrv := httptest.NewServer(http.HandlerFunc(okWeather))
	t.Cleanup(weatherSrv.Close)

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(graphSrv.Close)

	log := zerolog.Nop()
	weatherSvc := weather.NewService(weather.Config{APIKey: "k", BaseURL: weatherSrv.URL}, weatherSrv.Client(), log)
	sender := NewSender(SenderConfig{Token: "t", PhoneID: "p", GraphBaseURL: graphSrv.URL}, graphSrv.Client(), log)
	adapter := NewAdapter("secret", weatherSvc, sender, log)
	engine := gin.New()
	adapter.Register(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundBody))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "processed"}`, w.Body.String())
}

func TestFormatReplyImperialUnits(t *testing.T) {
	reply := formatReply(api.WeatherOutcome{
		OK: true, City: "Phoenix", Country: "US", Temp: 104, FeelsLike: 110,
		Humidity: 10, WindSpeed: 2, Conditions: "clear sky", Units: "imperial",
	})
	assert.Contains(t, reply, "104.0°F")
	assert.Contains(t, reply, "clear sky")
}
