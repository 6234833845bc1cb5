package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jobsuitex/autoapply/internal/cache"
	"github.com/jobsuitex/autoapply/internal/config"
)

const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
	ChannelRedis   = "redis"
)

// ErrInvalidAddress means a mail address is malformed or would break out of
// its header line.
var ErrInvalidAddress = errors.New("notify: invalid mail address")

// EmailChannel sends plain-text mail through an SMTP relay.
type EmailChannel struct {
	cfg config.SMTPConfig
	// sendMail is smtp.SendMail, replaceable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailChannel{cfg: cfg, sendMail: smtp.SendMail}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, to, message string) error {
	rcpt, err := checkAddress(to)
	if err != nil {
		return err
	}
	sender, err := checkAddress(c.cfg.From)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	addr := c.cfg.Host + ":" + strconv.Itoa(c.cfg.Port)
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	msg := buildMail(c.cfg.From, to, Subject(message), message)

	// net/smtp has no context support; the send is abandoned, not aborted,
	// when ctx ends first.
	done := make(chan error, 1)
	go func() { done <- c.sendMail(addr, auth, sender, []string{rcpt}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}

// checkAddress rejects header-breaking characters and returns the bare
// address for the SMTP envelope.
func checkAddress(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("%w: %q contains a line break", ErrInvalidAddress, s)
	}
	a, err := mail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return a.Address, nil
}

func buildMail(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", " ", "\n", " ").Replace(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// WebhookChannel POSTs {"text": message} to the destination URL. Chat
// gateways (WhatsApp bridges, Slack incoming webhooks) accept this shape.
type WebhookChannel struct {
	client *http.Client
}

func NewWebhookChannel(client *http.Client) *WebhookChannel {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookChannel{client: client}
}

func (c *WebhookChannel) Name() string { return ChannelWebhook }

func (c *WebhookChannel) Send(ctx context.Context, url, message string) error {
	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("encoding webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: status %d", resp.StatusCode)
	}
	return nil
}

// RedisChannel publishes the message on a Redis pub/sub channel.
type RedisChannel struct {
	cache cache.Cache
}

func NewRedisChannel(c cache.Cache) *RedisChannel {
	return &RedisChannel{cache: c}
}

func (c *RedisChannel) Name() string { return ChannelRedis }

func (c *RedisChannel) Send(ctx context.Context, channel, message string) error {
	if err := c.cache.Publish(ctx, channel, message); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
