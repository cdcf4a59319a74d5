// Package mailer delivers application status notifications by email.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	_ "embed"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Config holds SMTP settings. TemplatesPath overrides the built-in templates.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	TemplatesPath string
}

type templateSpec struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders a template per notifiable status and sends it over SMTP.
type Mailer struct {
	cfg       Config
	templates map[models.Status]messageTemplate
	send      sendFunc
	logger    *zap.Logger
	now       func() time.Time
}

// New loads the templates and returns a Mailer.
func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("%w: smtp host and from address are required", e.ErrInvalidInput)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	raw := defaultTemplates
	if cfg.TemplatesPath != "" {
		data, err := os.ReadFile(cfg.TemplatesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read templates: %w", err)
		}
		raw = data
	}
	templates, err := parseTemplates(raw)
	if err != nil {
		return nil, err
	}

	return &Mailer{
		cfg:       cfg,
		templates: templates,
		send:      sendMail,
		logger:    logger.Named("mailer"),
		now:       time.Now,
	}, nil
}

func parseTemplates(raw []byte) (map[models.Status]messageTemplate, error) {
	var specs map[string]templateSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	templates := make(map[models.Status]messageTemplate, len(specs))
	for name, spec := range specs {
		status := models.Status(name)
		if !status.Notifiable() {
			return nil, fmt.Errorf("%w: template for non-notifiable status %q", e.ErrInvalidInput, name)
		}
		subject, err := template.New(name + ".subject").Option("missingkey=error").Parse(spec.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=error").Parse(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("template %s body: %w", name, err)
		}
		templates[status] = messageTemplate{subject: subject, body: body}
	}

	for _, status := range models.Statuses {
		if _, ok := templates[status]; status.Notifiable() && !ok {
			return nil, fmt.Errorf("%w: missing template for status %q", e.ErrInvalidInput, status)
		}
	}
	return templates, nil
}

// Notify implements the notification sink by sending the email right away.
func (m *Mailer) Notify(ctx context.Context, n *models.StatusNotification) error {
	return m.Deliver(ctx, n)
}

// Deliver renders and sends the email for n.
func (m *Mailer) Deliver(ctx context.Context, n *models.StatusNotification) error {
	if n.EmployeeEmail == "" {
		return fmt.Errorf("%w: notification without recipient", e.ErrInvalidInput)
	}
	msg, err := m.render(n)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(ctx, addr, auth, m.cfg.From, []string{n.EmployeeEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Status email sent",
		zap.String("application_id", n.ApplicationID.String()),
		zap.String("status", string(n.Status)),
	)
	return nil
}

// sendMail is smtp.SendMail bound to ctx: the dial honours cancellation and
// the connection deadline follows the context, so a stalled server cannot
// hold the caller past it.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) (err error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	// Cancellation without a deadline still unblocks pending reads and writes.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()
	defer func() {
		if err == nil {
			return
		}
		// The conn deadline can fire just before the context records it.
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			<-ctx.Done()
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
	}()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mailer) render(n *models.StatusNotification) ([]byte, error) {
	tmpl, ok := m.templates[n.Status]
	if !ok {
		return nil, fmt.Errorf("%w: no template for status %q", e.ErrInvalidInput, n.Status)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, n); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, n); err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", headerValue(m.cfg.From))
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(n.EmployeeEmail))
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerValue(subject.String()))
	fmt.Fprintf(&msg, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return msg.Bytes(), nil
}

// headerValue strips line breaks so rendered values cannot add headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
