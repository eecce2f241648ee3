// Package mail delivers transactional email over SMTP or the Resend API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/quotedprintable"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Config holds mail provider settings.
type Config struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

// Message is a single email to send. Text is the plain-text alternative
// shown by clients that refuse HTML.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// sendTimeout bounds a single outbound delivery so a stalled provider
// cannot hang a request.
const sendTimeout = 15 * time.Second

const resendEndpoint = "https://api.resend.com/emails"

// Sender sends emails via SMTP or the Resend HTTP API.
type Sender struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Sender {
	return &Sender{
		cfg:  cfg,
		http: &http.Client{Timeout: sendTimeout},
	}
}

func (s *Sender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.User
}

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
// A disabled sender silently drops messages, which keeps local setups
// working without a mail account.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(ctx, msg)
	}
	return s.sendSMTP(msg)
}

func (s *Sender) sendSMTP(msg Message) error {
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, port)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	return smtp.SendMail(addr, auth, s.from(), msg.To, s.buildMIME(msg))
}

// buildMIME assembles a multipart/alternative body when both plain text
// and HTML parts are present, otherwise a single HTML part.
func (s *Sender) buildMIME(msg Message) []byte {
	const boundary = "folio-alt-7f3a9c"

	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("MIME-Version", "1.0")
	header("From", s.from())
	header("To", strings.Join(msg.To, ", "))
	header("Subject", msg.Subject)
	if s.cfg.ReplyTo != "" {
		header("Reply-To", s.cfg.ReplyTo)
	}

	if msg.Text == "" {
		header("Content-Type", "text/html; charset=UTF-8")
		b.WriteString("\r\n")
		b.WriteString(msg.HTML)
		return b.Bytes()
	}

	header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
	b.WriteString("\r\n")

	part := func(contentType, content string) {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s; charset=UTF-8\r\n", contentType)
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&b)
		_, _ = qp.Write([]byte(content))
		_ = qp.Close()
		b.WriteString("\r\n")
	}
	part("text/plain", msg.Text)
	part("text/html", msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return b.Bytes()
}

func (s *Sender) sendResend(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    s.from(),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, body.Message)
	}
	return nil
}
