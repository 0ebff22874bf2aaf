package slack

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// Client wraps the slack client used for operator notifications.
type Client struct {
	api              *slack.Client
	channelID        string
	rateLimitBackoff time.Duration
}

// NewClient creates a new slack client. Returns nil when slack is not
// configured; a nil client ignores every send.
func NewClient(token, channelID string) *Client {
	if token == "" || channelID == "" {
		log.Info("Slack token or channel ID is not configured. Slack notifications will be disabled.")
		return nil
	}
	return &Client{
		api:       slack.New(token),
		channelID: channelID,
	}
}

// SendMessage sends a simple text message wrapped as an info block.
func (c *Client) SendMessage(message string) {
	if c == nil || c.api == nil {
		return
	}
	c.SendRichMessage(NewInfoMessage("Fleet Notification", message))
}

// SendRichMessage sends a block-kit message with rate limit handling.
func (c *Client) SendRichMessage(options slack.MsgOption) {
	if c == nil || c.api == nil {
		return
	}
	if c.rateLimitBackoff > 0 {
		log.Infof("Skipping Slack message, rate limit backoff active (%v)", c.rateLimitBackoff)
		return
	}

	_, _, err := c.api.PostMessage(c.channelID, options)
	if err != nil {
		if c.isRateLimitError(err) {
			c.handleRateLimit(err)
		} else {
			log.Errorf("Failed to send Slack message: %v", err)
		}
	}
}

// isRateLimitError checks if the error is related to rate limiting.
func (c *Client) isRateLimitError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate_limited") ||
		strings.Contains(errStr, "message_limit_exceeded") ||
		strings.Contains(errStr, "too_many_requests")
}

// handleRateLimit suppresses messages for a backoff period after a rate
// limit response. message_limit_exceeded gets a longer pause.
func (c *Client) handleRateLimit(err error) {
	backoff := 1 * time.Minute
	if strings.Contains(strings.ToLower(err.Error()), "message_limit_exceeded") {
		backoff = 5 * time.Minute
	}

	c.rateLimitBackoff = backoff
	log.Warnf("Slack rate limit detected (%v). Messages suppressed for %v", err, backoff)

	go func() {
		time.Sleep(backoff)
		c.rateLimitBackoff = 0
		log.Info("Slack rate limit backoff ended. Messages will resume.")
	}()
}

// IsRateLimited reports whether the client is in a backoff period.
func (c *Client) IsRateLimited() bool {
	if c == nil {
		return false
	}
	return c.rateLimitBackoff > 0
}

// SendMessageSafe sends only when not rate limited, reporting whether the
// message went out.
func (c *Client) SendMessageSafe(message string) bool {
	if c == nil || c.IsRateLimited() {
		return false
	}
	c.SendMessage(message)
	return true
}
