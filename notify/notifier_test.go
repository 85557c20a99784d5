package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestNotifierDelivery(t *testing.T) {
	delivered := make(chan Notification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.Header.Get("Content-Type"), "application/json")

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var notification Notification
		assert.NoError(t, json.Unmarshal(body, &notification))
		delivered <- notification
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := NewNotifier(&NotifierConfig{
		WebhookURL: server.URL,
		Logger:     &log.Logger,
	})
	go notifier.Run(ctx)

	notifier.Send("BTCUSDT", "sell for BTCUSDT failed after 5 attempts")

	// Ensure the queued notification is posted to the webhook.
	select {
	case notification := <-delivered:
		assert.Equal(t, notification.Market, "BTCUSDT")
		assert.Equal(t, notification.Message, "sell for BTCUSDT failed after 5 attempts")
	case <-time.After(time.Second * 5):
		t.Fatal("expected a delivered notification")
	}
}

func TestNotifierQueueCapacity(t *testing.T) {
	notifier := NewNotifier(&NotifierConfig{
		WebhookURL: "http://localhost",
		Logger:     &log.Logger,
	})

	// Ensure sends beyond the queue capacity are dropped without blocking.
	for idx := 0; idx < bufferSize*2; idx++ {
		notifier.Send("BTCUSDT", "message")
	}
	assert.Equal(t, len(notifier.notifications), bufferSize)
}
