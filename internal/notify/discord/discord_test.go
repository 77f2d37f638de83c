package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/millwright/internal/notify"
)

type mockSession struct {
	embeds   []*discordgo.MessageEmbed
	channels []string
	err      error
	closed   bool
}

func (m *mockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.channels = append(m.channels, channelID)
	m.embeds = append(m.embeds, embed)
	return &discordgo.Message{}, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{Channel: "123"}); err == nil {
		t.Error("expected error without token")
	}
	if _, err := New(Opts{BotToken: "tok"}); err == nil {
		t.Error("expected error without channel")
	}
}

func TestSend(t *testing.T) {
	ms := &mockSession{}
	s, err := New(Opts{Channel: "123", Session: ms})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	p := notify.Push{
		Title: "Jo, ticket assigned to you",
		Body:  "CNC-0126-0001: Spindle noise",
		Data:  notify.PushData{DisplayCode: "CNC-0126-0001", URL: "/?ticket=1"},
	}
	if err := s.Send(context.Background(), 5, p); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(ms.embeds) != 1 || ms.channels[0] != "123" {
		t.Fatalf("embeds = %d, channels = %v", len(ms.embeds), ms.channels)
	}
	e := ms.embeds[0]
	if e.Title != p.Title || e.Description != p.Body {
		t.Errorf("embed = %+v", e)
	}
	if len(e.Fields) != 2 || e.Fields[0].Value != "CNC-0126-0001" {
		t.Errorf("fields = %+v", e.Fields)
	}
}

func TestSend_Error(t *testing.T) {
	ms := &mockSession{err: errors.New("missing access")}
	s, _ := New(Opts{Channel: "123", Session: ms})

	if err := s.Send(context.Background(), 5, notify.Push{Title: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestClose(t *testing.T) {
	ms := &mockSession{}
	s, _ := New(Opts{Channel: "123", Session: ms})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ms.closed {
		t.Error("session not closed")
	}
}
