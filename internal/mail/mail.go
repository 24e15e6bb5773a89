// Package mail sends transactional email through a pluggable backend.
package mail

import (
	"context"
	"fmt"
	"net/mail"
)

// Message is one outgoing email.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

// HasRecipients reports whether the message is addressed to anyone.
func (m Message) HasRecipients() bool {
	for _, a := range m.To {
		if a.Address != "" {
			return true
		}
	}
	return false
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a Sender.
type Config struct {
	Driver      string // console, sendgrid or none
	SendgridKey string
	FromName    string
	FromAddress string
}

// New returns the Sender named by cfg.Driver.
func New(cfg Config) (Sender, error) {
	switch cfg.Driver {
	case "", "console":
		return NewConsoleSender(cfg.FromName, nil), nil
	case "sendgrid":
		if cfg.SendgridKey == "" {
			return nil, fmt.Errorf("sendgrid mail driver requires an API key")
		}
		return NewSendgridSender(cfg.SendgridKey, cfg.FromName, cfg.FromAddress), nil
	case "none":
		return NopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// NopSender drops every message.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(context.Context, Message) error { return nil }
