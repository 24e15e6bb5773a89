package mail

import (
	"bytes"
	"context"
	"net/mail"
	"strings"
	"testing"
)

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender("Academy", &buf)

	if err := s.Send(context.Background(), Message{Subject: "nobody"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(s.Sent()) != 0 {
		t.Fatal("message without recipients should be dropped")
	}

	msg := Message{
		To:      []mail.Address{{Name: "Alice", Address: "alice@example.com"}},
		Subject: "Graded",
		Text:    "Your exam was graded.",
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := s.Sent()
	if len(sent) != 1 || sent[0].Subject != "[Academy] Graded" {
		t.Fatalf("sent = %+v", sent)
	}
	if !strings.Contains(buf.String(), "alice@example.com") || !strings.Contains(buf.String(), "Your exam was graded.") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Driver: "console"}, false},
		{Config{Driver: ""}, false},
		{Config{Driver: "none"}, false},
		{Config{Driver: "sendgrid", SendgridKey: "k", FromAddress: "a@b.c"}, false},
		{Config{Driver: "sendgrid"}, true},
		{Config{Driver: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Driver, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%+v) err = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			}
		})
	}
}

func TestSendgridPrepare(t *testing.T) {
	s := NewSendgridSender("key", "Academy", "noreply@example.com")
	m := s.prepare(Message{
		To:      []mail.Address{{Name: "Bob", Address: "bob@example.com"}},
		Subject: "Hello",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	if m.From.Address != "noreply@example.com" {
		t.Errorf("From = %+v", m.From)
	}
	if len(m.Personalizations) != 1 || m.Personalizations[0].Subject != "[Academy] Hello" {
		t.Errorf("personalizations = %+v", m.Personalizations)
	}
	if len(m.Content) != 2 {
		t.Errorf("content parts = %d, want 2", len(m.Content))
	}
}
