// Package slack implements the notify Sink on a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/millwright/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Sink posts ticket notifications to a Slack channel.
type Sink struct {
	client    client
	channelID string
}

// Opts holds parameters for creating a Slack Sink.
type Opts struct {
	BotToken string // xoxb-... Slack bot token
	Channel  string // channel to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client client
}

// New creates a Slack Sink.
func New(opts Opts) (*Sink, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	s := &Sink{channelID: opts.Channel}
	if opts.Client != nil {
		s.client = opts.Client
	} else {
		s.client = slackapi.New(opts.BotToken)
	}
	return s, nil
}

// Send posts the push as an attachment, retrying on Slack rate limits.
func (s *Sink) Send(ctx context.Context, userID uint, p notify.Push) error {
	att := slackapi.Attachment{
		Title:    p.Title,
		Text:     p.Body,
		Fallback: p.Title,
		Fields: []slackapi.AttachmentField{
			{Title: "Ticket", Value: p.Data.DisplayCode, Short: true},
			{Title: "Link", Value: p.Data.URL, Short: true},
		},
	}
	for _, a := range p.Actions {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: "Action", Value: a.Title, Short: true,
		})
	}

	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := s.client.PostMessage(s.channelID, slackapi.MsgOptionAttachments(att))
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Slack web API client holds no connection.
func (s *Sink) Close() error { return nil }

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit
// errors. It respects context cancellation and Slack's RetryAfter hint.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
