// Package notify sends farmer-facing text messages. Delivery is
// best-effort: callers log failures and never block a state transition
// on the outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier sends a text message to a phone number.
type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// HTTPGateway posts messages to an external SMS gateway.
type HTTPGateway struct {
	client   *http.Client
	endpoint string
	apiKey   string
	sender   string
}

func NewHTTPGateway(endpoint, apiKey, sender string) *HTTPGateway {
	return &HTTPGateway{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
		sender:   sender,
	}
}

type gatewayPayload struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *HTTPGateway) SendSMS(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(gatewayPayload{To: phone, From: g.sender, Message: message})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes messages to the log instead of a gateway. Used in
// dev and when no gateway is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendSMS(_ context.Context, phone, message string) error {
	n.logger.Info("sms (log only)", zap.String("phone", phone), zap.String("message", message))
	return nil
}
