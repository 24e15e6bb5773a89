package mail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ConsoleSender writes messages to a writer instead of delivering them,
// and keeps a copy of each for inspection.
type ConsoleSender struct {
	subjPrefix string
	out        io.Writer

	mu   sync.Mutex
	sent []Message
}

// NewConsoleSender returns a ConsoleSender. A nil out only logs.
func NewConsoleSender(appName string, out io.Writer) *ConsoleSender {
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &ConsoleSender{subjPrefix: prefix, out: out}
}

// Send implements Sender.
func (c *ConsoleSender) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	msg.Subject = c.subjPrefix + msg.Subject
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.String())
	}
	slog.Info("email", "to", strings.Join(to, ", "), "subject", msg.Subject)
	if c.out != nil {
		if _, err := fmt.Fprintf(c.out, "To: %s\nSubject: %s\n\n%s\n\n", strings.Join(to, ", "), msg.Subject, msg.Text); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

// Sent returns the messages sent so far.
func (c *ConsoleSender) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}
