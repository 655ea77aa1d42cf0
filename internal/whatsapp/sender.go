package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// DefaultGraphBaseURL is the Meta Graph API host.
const DefaultGraphBaseURL = "https://graph.facebook.com"

// SenderConfig holds the credentials for the Cloud API send-message endpoint.
type SenderConfig struct {
	Token        string
	PhoneID      string
	APIVersion   string
	GraphBaseURL string
}

// Sender delivers outbound text messages through the WhatsApp Cloud API.
type Sender struct {
	cfg    SenderConfig
	client *http.Client
	log    zerolog.Logger
}

// NewSender creates a sender using the shared HTTP client.
func NewSender(cfg SenderConfig, client *http.Client, log zerolog.Logger) *Sender {
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = DefaultGraphBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v17.0"
	}
	return &Sender{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "whatsapp.sender").Logger(),
	}
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// SendText posts a text message to the recipient's phone number.
func (s *Sender) SendText(ctx context.Context, to, body string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = body

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.cfg.GraphBaseURL, s.cfg.APIVersion, s.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call send-message API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send-message API returned status %d: %s", resp.StatusCode, respBody)
	}

	s.log.Info().Str("to", to).Msg("sent message")
	return nil
}
