package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WhatsAppMessenger delivers templated messages through the messaging
// provider's REST API.
type WhatsAppMessenger struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewWhatsAppMessenger(endpoint, apiKey string, timeout time.Duration) *WhatsAppMessenger {
	return &WhatsAppMessenger{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type messagePayload struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

func (m *WhatsAppMessenger) Send(ctx context.Context, to, template string, payload map[string]string) error {
	body, err := json.Marshal(messagePayload{
		To:       to,
		Template: template,
		Params:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("messaging provider returned status %d", resp.StatusCode)
	}
	return nil
}
