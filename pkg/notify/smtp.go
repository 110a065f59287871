package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/amirasaad/banking/pkg/config"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends HTML email through an SMTP relay.
type SMTPNotifier struct {
	addr   string
	auth   smtp.Auth
	from   string
	send   SendFunc
	logger *slog.Logger
}

// NewSMTPNotifier returns a notifier for the configured relay. Credentials
// are optional; PLAIN auth is used when a username is set.
func NewSMTPNotifier(cfg *config.Notify, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPNotifier{
		addr:   net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:   auth,
		from:   cfg.From,
		send:   smtp.SendMail,
		logger: logger.With("notifier", "smtp"),
	}
}

// WithSender replaces the transport, for tests.
func (n *SMTPNotifier) WithSender(send SendFunc) *SMTPNotifier {
	n.send = send
	return n
}

// Notify renders and sends the message. net/smtp has no context support, so
// ctx is only checked before dialing.
func (n *SMTPNotifier) Notify(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Recipient.Email == "" {
		return fmt.Errorf("notification %q has no recipient", msg.TemplateKey)
	}
	body, err := Render(msg)
	if err != nil {
		return err
	}
	if err := n.send(n.addr, n.auth, n.from, []string{msg.Recipient.Email}, n.compose(msg, body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.Recipient.Email, err)
	}
	n.logger.Debug("email sent", "template", msg.TemplateKey, "to", msg.Recipient.Email)
	return nil
}

func (n *SMTPNotifier) compose(msg Notification, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("notifier", "log")}
}

// Notify renders the message to check the template, then logs it.
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	n.logger.Info("notification",
		"subject", msg.Subject,
		"template", msg.TemplateKey,
		"to", msg.Recipient.Email,
		"amount", msg.Amount.String(),
		"account", maskNumber(msg.AccountNumber),
	)
	return nil
}

// New returns the notifier selected by cfg.Driver.
func New(cfg *config.Notify, logger *slog.Logger) (Notifier, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPNotifier(cfg, logger), nil
	case "", "log":
		return NewLogNotifier(logger), nil
	}
	return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
}
