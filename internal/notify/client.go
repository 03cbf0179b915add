// Package notify provides a webhook client for pushing user-facing
// notifications to the companion messaging service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haoyudev/habitloop/internal/config"
	prommetrics "github.com/haoyudev/habitloop/internal/metrics"
	"github.com/haoyudev/habitloop/pkg/logger"
)

// Client handles webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	log        *logger.Logger
}

// NewClient creates a new notification client.
func NewClient(cfg *config.NotifyConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		log:        log,
	}
}

// Message represents a webhook message payload.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// SendMessage sends a message through the webhook.
func (c *Client) SendMessage(msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Notifications are disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		prommetrics.RecordNotificationSent("error")
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		prommetrics.RecordNotificationSent("error")
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	prommetrics.RecordNotificationSent("success")
	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent notification")

	return nil
}

// SendSimpleMessage sends a simple text message.
func (c *Client) SendSimpleMessage(text string) error {
	return c.SendMessage(&Message{
		Text: text,
	})
}

// SendAchievementUnlocked announces a newly unlocked achievement.
func (c *Client) SendAchievementUnlocked(nickname, name, description, icon string) error {
	if icon == "" {
		icon = "🏆"
	}

	text := fmt.Sprintf("%s **%s** unlocked **%s**!\n\n_%s_", icon, nickname, name, description)

	return c.SendMessage(&Message{
		Text: text,
	})
}
