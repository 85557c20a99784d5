package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// Notification represents an outbound best-effort failure message.
type Notification struct {
	Market  string `json:"market"`
	Message string `json:"message"`
}

// NotifierConfig represents the notifier configuration.
type NotifierConfig struct {
	// WebhookURL is the notification webhook endpoint.
	WebhookURL string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Notifier delivers failure notifications to the configured webhook. Delivery
// is best effort: messages are dropped when the queue is full and failed
// posts are not retried.
type Notifier struct {
	cfg           *NotifierConfig
	httpc         http.Client
	notifications chan Notification
}

// NewNotifier initializes a new notifier.
func NewNotifier(cfg *NotifierConfig) *Notifier {
	return &Notifier{
		cfg:           cfg,
		httpc:         http.Client{Timeout: time.Second * 5},
		notifications: make(chan Notification, bufferSize),
	}
}

// Send queues the provided notification for delivery without blocking the caller.
func (n *Notifier) Send(market string, message string) {
	select {
	case n.notifications <- Notification{Market: market, Message: message}:
		// do nothing.
	default:
		n.cfg.Logger.Error().Msgf("notification channel at capacity: %d/%d",
			len(n.notifications), bufferSize)
	}
}

// post delivers the provided notification to the webhook.
func (n *Notifier) post(ctx context.Context, notification *Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL,
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification webhook responded with status %d", resp.StatusCode)
	}

	return nil
}

// Run manages the lifecycle processes of the notifier.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-n.notifications:
			err := n.post(ctx, &notification)
			if err != nil {
				n.cfg.Logger.Error().Msgf("delivering notification for %s: %v",
					notification.Market, err)
			}
		}
	}
}
