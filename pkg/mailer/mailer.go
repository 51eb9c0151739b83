package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/breaker"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
)

const implicitTLSPort = 465

var (
	ErrNoRecipients = errors.New("mailer: message has no recipients")
	ErrNoSender     = errors.New("mailer: message has no sender")
)

// Message is a single outbound HTML email.
type Message struct {
	To      []string
	From    string
	ReplyTo string
	Subject string
	HTML    string
}

// Notifier delivers transactional email.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// authenticator yields the SMTP auth mechanism for one delivery. A nil
// authenticator means the relay accepts unauthenticated submissions.
type authenticator interface {
	Mechanism() string
	Auth(ctx context.Context) (smtp.Auth, error)
}

// Mailer sends messages over SMTP with either PLAIN or XOAUTH2 auth.
type Mailer struct {
	host    string
	port    int
	from    string
	timeout time.Duration
	auth    authenticator
	breaker *breaker.Breaker
	metrics *metrics.Metrics
	logg    *logger.Logger
	now     func() time.Time
}

// New builds the SMTP notifier for the configured transport.
func New(ctx context.Context, cfg config.MailConfig, logg *logger.Logger, m *metrics.Metrics) (*Mailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("mailer: host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("mailer: port must be positive")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var auth authenticator
	if cfg.Username != "" {
		if cfg.IsOAuth2() {
			auth = newOAuth2Authenticator(ctx, cfg)
		} else {
			auth = passwordAuthenticator{username: cfg.Username, password: cfg.Password, host: host}
		}
	}

	return &Mailer{
		host:    host,
		port:    cfg.Port,
		from:    strings.TrimSpace(cfg.From),
		timeout: timeout,
		auth:    auth,
		breaker: breaker.New(breaker.Settings{Name: "mail"}, logg),
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Transport names the active auth mechanism.
func (m *Mailer) Transport() string {
	if m.auth == nil {
		return "none"
	}
	return m.auth.Mechanism()
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.from
	}
	raw, err := buildMessage(msg, m.now().UTC())
	if err != nil {
		return err
	}
	sender, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("mailer: invalid sender: %w", err)
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		addr, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("mailer: invalid recipient %q: %w", to, err)
		}
		recipients = append(recipients, addr.Address)
	}

	start := time.Now()
	err = m.breaker.Do(ctx, func(ctx context.Context) error {
		return m.deliver(ctx, sender.Address, recipients, raw)
	})
	m.metrics.ObserveUpstream("mail", "send", err, time.Since(start))
	if err != nil {
		if m.logg != nil {
			logCtx := m.logg.WithFields(ctx, map[string]any{
				"transport":  m.Transport(),
				"recipients": len(recipients),
			})
			m.logg.Error(logCtx, "mail delivery failed", err)
		}
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) deliver(ctx context.Context, from string, to []string, raw []byte) error {
	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(m.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if m.auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		auth, err := m.auth.Auth(ctx)
		if err != nil {
			return fmt.Errorf("smtp credentials: %w", err)
		}
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth (%s): %w", m.auth.Mechanism(), err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

func (m *Mailer) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &net.Dialer{Timeout: m.timeout}

	var (
		conn net.Conn
		err  error
	)
	if m.port == implicitTLSPort {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: m.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

func (m *Mailer) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}
}

type passwordAuthenticator struct {
	username string
	password string
	host     string
}

func (p passwordAuthenticator) Mechanism() string { return "PLAIN" }

func (p passwordAuthenticator) Auth(context.Context) (smtp.Auth, error) {
	return smtp.PlainAuth("", p.username, p.password, p.host), nil
}
