package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nutriadmin.org/internal/obs"
)

// RelayTransport posts messages as JSON to an HTTP mail relay.
type RelayTransport struct {
	client *resty.Client
	url    string
}

func NewRelayTransport(url, apiKey string, timeout time.Duration) *RelayTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if key := strings.TrimSpace(apiKey); key != "" {
		client.SetAuthToken(key)
	}
	return &RelayTransport{client: client, url: url}
}

func (t *RelayTransport) Send(ctx context.Context, msg Message) error {
	resp, err := t.client.R().SetContext(ctx).SetBody(msg).Post(t.url)
	if err != nil {
		return fmt.Errorf("notify: relay: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: relay responded %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// LogTransport writes a log line per message instead of delivering it. The body
// is omitted because it carries credentials.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, msg Message) error {
	obs.Logger().WithFields(map[string]any{
		"type":    "mail",
		"to":      msg.To,
		"subject": msg.Subject,
		"bytes":   len(msg.HTML),
	}).Info("mail_suppressed")
	return nil
}
