package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"github.com/petr-muller/planesync/internal/mappings"
	"github.com/petr-muller/planesync/internal/planesync/selection"
	"github.com/petr-muller/planesync/internal/syncerr"
)

const (
	defaultTimeout = 10 * time.Second
	op             = "send teams message"
)

// Client posts notification cards to a Teams incoming webhook
type Client struct {
	webhookURL string
	style      *mappings.CardStyle
	http       *http.Client
}

// NewClient creates a Teams webhook client. Requests are not retried.
func NewClient(webhookURL string, timeout time.Duration, style *mappings.CardStyle) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout

	if style == nil {
		style = mappings.NewCardStyle()
	}

	return &Client{webhookURL: webhookURL, style: style, http: httpClient}
}

// Render returns the JSON body that Send would post for payload
func (c *Client) Render(payload selection.Payload) ([]byte, error) {
	data, err := json.Marshal(NewMessage(payload, c.style))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal teams message: %w", err)
	}
	return data, nil
}

// Send posts the payload as an Adaptive Card
func (c *Client) Send(ctx context.Context, payload selection.Payload) error {
	body, err := c.Render(payload)
	if err != nil {
		return syncerr.Data(op, err)
	}

	logrus.WithField("entries", len(payload.Entries)).Info("Sending message to Teams")
	logrus.Debugf("Message content: %s", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return syncerr.Transport(op, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return syncerr.Transport(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return syncerr.Transport(op, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(text))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logrus.Info("Successfully sent message to Teams")
	return nil
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
