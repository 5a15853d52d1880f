package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/governance-console/internal/notify"
)

// RelayMailer delivers notices through an external HTTP relay endpoint that
// accepts a JSON payload and responds with a JSON error envelope on failure.
type RelayMailer struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewRelayMailer builds a mailer that posts to the given endpoint.
func NewRelayMailer(endpoint string, client *http.Client, logger *slog.Logger) (*RelayMailer, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("mail: relay endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayMailer{endpoint: endpoint, client: client, logger: logger}, nil
}

type relayPayload struct {
	To             string `json:"destinatario"`
	Subject        string `json:"asunto"`
	Body           string `json:"contenido"`
	AttachmentName string `json:"adjunto_nombre,omitempty"`
	AttachmentB64  string `json:"adjunto_base64,omitempty"`
}

// Send posts one message to the relay. Non-2xx responses are normalized into
// a single readable error message.
func (m *RelayMailer) Send(ctx context.Context, msg notify.Message) error {
	if m == nil {
		return fmt.Errorf("mail: relay mailer is nil")
	}
	if msg.To == "" {
		return fmt.Errorf("mail: recipient is required")
	}

	payload, err := json.Marshal(relayPayload{
		To:             msg.To,
		Subject:        msg.Subject,
		Body:           msg.Body,
		AttachmentName: msg.Attachment.Name,
		AttachmentB64:  msg.Attachment.Base64,
	})
	if err != nil {
		return fmt.Errorf("mail: payload encoding failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mail: relay request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: relay call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		m.logger.DebugContext(ctx, "relay message accepted", "recipient", msg.To)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return fmt.Errorf("mail: relay rejected message (%d): %s", resp.StatusCode, NormalizeRelayError(body))
}

// relayErrorEnvelope matches the relay's error body. The message field is
// either a string or an array of strings depending on the failure.
type relayErrorEnvelope struct {
	Message json.RawMessage `json:"message"`
}

// NormalizeRelayError flattens the relay's error body into one readable
// string. An array of messages is joined with ", "; anything unparseable
// falls back to the raw body.
func NormalizeRelayError(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "unknown relay error"
	}

	var envelope relayErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return trimmed
	}

	var single string
	if err := json.Unmarshal(envelope.Message, &single); err == nil {
		return single
	}

	var many []string
	if err := json.Unmarshal(envelope.Message, &many); err == nil {
		return strings.Join(many, ", ")
	}

	return trimmed
}
