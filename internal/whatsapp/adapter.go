// Package whatsapp bridges the WhatsApp Cloud API to the weather lookup. The
// adapter serves Meta's webhook verification handshake, walks the inbound
// notification envelope for text messages, runs the weather lookup, and posts
// a formatted reply through the send-message endpoint.
package whatsapp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
	"github.com/dileep-u-k/chatbot-gateway/internal/weather"
)

const commandPrefix = "weather "

// Adapter handles the webhook HTTP surface.
type Adapter struct {
	verifyToken string
	weather     *weather.Service
	sender      *Sender
	log         zerolog.Logger
}

// NewAdapter creates a webhook adapter.
func NewAdapter(verifyToken string, weatherSvc *weather.Service, sender *Sender, log zerolog.Logger) *Adapter {
	return &Adapter{
		verifyToken: verifyToken,
		weather:     weatherSvc,
		sender:      sender,
		log:         log.With().Str("component", "whatsapp").Logger(),
	}
}

// Register mounts the webhook routes on the engine.
func (a *Adapter) Register(r *gin.Engine) {
	r.GET("/healthz", a.handleHealth)
	r.GET("/webhook", a.handleVerify)
	r.POST("/webhook", a.handleInbound)
}

func (a *Adapter) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleVerify answers Meta's subscription handshake: echo the challenge when
// the caller's token matches, otherwise reject.
func (a *Adapter) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == a.verifyToken {
		a.log.Info().Msg("webhook verified successfully")
		c.String(http.StatusOK, challenge)
		return
	}
	a.log.Warn().Msg("webhook verification failed")
	c.JSON(http.StatusForbidden, gin.H{"detail": "Verification token mismatch"})
}

// inboundEnvelope mirrors the nested notification structure Meta delivers:
// entries → changes → value → messages.
type inboundEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (a *Adapter) handleInbound(c *gin.Context) {
	log := a.log.With().Str("delivery_id", uuid.NewString()).Logger()

	var envelope inboundEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Error().Err(err).Msg("error processing webhook")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				text := strings.TrimSpace(msg.Text.Body)
				if text == "" {
					// Non-text messages are ignored for now.
					continue
				}

				cmd := text
				if strings.HasPrefix(strings.ToLower(text), commandPrefix) {
					cmd = strings.TrimSpace(text[len(commandPrefix):])
				}

				result := a.weather.Lookup(c.Request.Context(), cmd, "")
				body := formatReply(result)

				// Delivery failures are logged but never fail the inbound
				// request; Meta would otherwise retry the whole batch.
				if err := a.sender.SendText(c.Request.Context(), msg.From, body); err != nil {
					log.Error().Err(err).Str("to", msg.From).Msg("failed to send reply")
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// formatReply renders a weather outcome as a human-readable message.
func formatReply(result api.WeatherOutcome) string {
	if !result.OK {
		detail := result.Detail
		if detail == "" {
			detail = "Could not fetch weather."
		}
		return "Error: " + detail
	}

	sym := unitSymbol(result.Units)
	return fmt.Sprintf(
		"Weather for %s, %s\nTemp: %.1f%s (feels like %.1f%s)\nConditions: %s\nHumidity: %d%%\nWind: %.1f m/s\n",
		result.City, result.Country,
		result.Temp, sym, result.FeelsLike, sym,
		result.Conditions, result.Humidity, result.WindSpeed,
	)
}

func unitSymbol(units string) string {
	if units == "imperial" {
		return "°F"
	}
	return "°C"
}
