package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/mo-amir99/course-enrollment-server/pkg/config"
)

// ErrDisabled is returned when no SMTP host is configured.
var ErrDisabled = errors.New("email is not configured")

const boundary = "course-enrollment-boundary"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Client handles email sending operations.
type Client struct {
	cfg  config.EmailConfig
	send sendFunc
}

// NewClient creates a new email client.
func NewClient(cfg config.EmailConfig) *Client {
	return &Client{cfg: cfg, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Host != ""
}

// Options represents the options for sending an email.
type Options struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Send delivers an email with HTML and optional plain-text parts.
func (c *Client) Send(opts Options) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	message := c.buildMessage(opts.To, opts.Subject, wrapHTML(opts.HTML), opts.Text)

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)

	if err := c.send(addr, auth, c.from(), []string{opts.To}, []byte(message)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SendWelcome greets a newly registered user.
func (c *Client) SendWelcome(to, name string) error {
	html := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Welcome aboard! Your account is ready.</p>
		<p>Browse the catalog and enroll in your first course to get started.</p>
	`, template.HTMLEscapeString(name))

	return c.Send(Options{
		To:      to,
		Subject: "Welcome to the course platform",
		HTML:    html,
		Text:    fmt.Sprintf("Hello %s, welcome aboard! Browse the catalog and enroll in your first course.", name),
	})
}

func (c *Client) from() string {
	if c.cfg.From == "" {
		return "noreply@example.com"
	}
	return c.cfg.From
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 32px; font-family: Arial, sans-serif; background: #f9f9f9;">
    <div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; padding: 32px;">
        <div style="font-size: 16px; color: #333;">{{.Content}}</div>
        <div style="margin-top: 32px; text-align: center; color: #aaa; font-size: 12px;">&copy; {{.Year}}</div>
    </div>
</body>
</html>
`))

func wrapHTML(content string) string {
	var buf bytes.Buffer
	data := map[string]interface{}{
		"Content": template.HTML(content),
		"Year":    time.Now().Year(),
	}
	if err := layout.Execute(&buf, data); err != nil {
		return content
	}
	return buf.String()
}

func (c *Client) buildMessage(to, subject, html, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if text != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(text + "\r\n")
	}

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html + "\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return b.String()
}
