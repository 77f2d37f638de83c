// Package discord implements the notify Sink on a Discord channel.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/millwright/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Sink posts ticket notifications to a Discord channel.
type Sink struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Sink.
type Opts struct {
	BotToken string // Discord bot token
	Channel  string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Sink. The REST API is used for sends, so no gateway
// connection is opened.
func New(opts Opts) (*Sink, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	s := &Sink{channelID: opts.Channel}
	if opts.Session != nil {
		s.sess = opts.Session
	} else {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		s.sess = dg
	}
	return s, nil
}

// Send posts the push as an embed.
func (s *Sink) Send(ctx context.Context, userID uint, p notify.Push) error {
	embed := &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: p.Body,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket", Value: p.Data.DisplayCode, Inline: true},
			{Name: "Link", Value: p.Data.URL, Inline: true},
		},
	}
	_, err := s.sess.ChannelMessageSendEmbed(s.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Close shuts down the underlying session.
func (s *Sink) Close() error {
	return s.sess.Close()
}
