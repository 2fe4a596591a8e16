package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/metrics"
)

var ErrNotConfigured = errors.New("mailer missing configuration")

const (
	templateVerification      = "verification"
	templatePasswordReset     = "password_reset"
	templateApplicationStatus = "application_status"
	templateProjectStatus     = "project_status"
)

// Each message template defines a "<name>.subject" and a "<name>.body".
var templates = template.Must(template.New("mail").Parse(`
{{define "verification.subject"}}Confirm your SciCom account{{end}}
{{define "verification.body"}}Hello {{.Username}},

welcome to SciCom. Confirm your email address by opening the link below:

{{.Link}}

Your verification code is {{.Token}}.

If you did not create an account, ignore this email.
{{end}}

{{define "password_reset.subject"}}Reset your SciCom password{{end}}
{{define "password_reset.body"}}Someone asked to reset the password of your SciCom account.

Choose a new password here:

{{.Link}}

Your reset code is {{.Token}}.

If you did not request this, ignore this email. Your password stays unchanged.
{{end}}

{{define "application_status.subject"}}Your application for "{{.Title}}" was {{.Status}}{{end}}
{{define "application_status.body"}}Hello,

your application for the project "{{.Title}}" was {{.Status}}.

See your applications at {{.Link}}
{{end}}

{{define "project_status.subject"}}"{{.Title}}" is now {{.Status}}{{end}}
{{define "project_status.body"}}Hello,

the project "{{.Title}}" you applied to is now {{.Status}}.

Details at {{.Link}}
{{end}}
`))

const defaultTimeout = 10 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Config struct {
	Host            string
	Port            string
	Username        string
	Password        string
	From            string
	FrontendBaseURL string
	// Timeout bounds a whole SMTP exchange. Defaults to 10 seconds.
	Timeout time.Duration
}

// Mailer delivers the account and status emails over SMTP.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	frontend string
	timeout  time.Duration
	send     sendFunc
}

type message struct {
	Username string
	Token    string
	Link     string
	Title    string
	Status   string
}

func NewMailer(cfg Config) *Mailer {
	m := &Mailer{
		host:     strings.TrimSpace(cfg.Host),
		port:     strings.TrimSpace(cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		from:     strings.TrimSpace(cfg.From),
		frontend: strings.TrimRight(strings.TrimSpace(cfg.FrontendBaseURL), "/"),
		timeout:  cfg.Timeout,
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	m.send = m.sendSMTP
	return m
}

func (m *Mailer) SendVerification(ctx context.Context, email, username, token string) error {
	return m.deliver(ctx, templateVerification, email, message{
		Username: username,
		Token:    token,
		Link:     m.link("/verify-email", url.Values{"email": {email}, "token": {token}}),
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.deliver(ctx, templatePasswordReset, email, message{
		Token: token,
		Link:  m.link("/reset-password", url.Values{"email": {email}, "token": {token}}),
	})
}

func (m *Mailer) SendApplicationStatus(ctx context.Context, email, projectTitle string, status domain.ApplicationStatus) error {
	return m.deliver(ctx, templateApplicationStatus, email, message{
		Title:  headerValue(projectTitle),
		Status: string(status),
		Link:   m.link("/applications", nil),
	})
}

func (m *Mailer) SendProjectStatus(ctx context.Context, email, projectTitle string, status domain.ProjectStatus) error {
	return m.deliver(ctx, templateProjectStatus, email, message{
		Title:  headerValue(projectTitle),
		Status: string(status),
		Link:   m.link("/projects", nil),
	})
}

func (m *Mailer) deliver(ctx context.Context, name, to string, data message) (err error) {
	defer func() { metrics.RecordMail(name, err == nil) }()

	if m == nil || m.host == "" || m.port == "" || m.from == "" {
		return ErrNotConfigured
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg, err := m.compose(name, to, data)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := m.send(ctx, net.JoinHostPort(m.host, m.port), auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", name, err)
	}
	return nil
}

// sendSMTP runs the exchange smtp.SendMail would, on a connection that is
// closed when ctx ends or the timeout passes.
func (m *Mailer) sendSMTP(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err = exchange(conn, m.host, a, from, to, msg)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

func exchange(conn net.Conn, host string, a smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
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

func (m *Mailer) compose(name, to string, data message) ([]byte, error) {
	var subject, body bytes.Buffer
	if err := templates.ExecuteTemplate(&subject, name+".subject", data); err != nil {
		return nil, err
	}
	if err := templates.ExecuteTemplate(&body, name+".body", data); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(to))
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerValue(subject.String()))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(strings.TrimLeft(body.String(), "\n"), "\n", "\r\n"))
	return msg.Bytes(), nil
}

func (m *Mailer) link(path string, params url.Values) string {
	link := m.frontend + path
	if len(params) > 0 {
		link += "?" + params.Encode()
	}
	return link
}

// headerValue keeps user supplied text on a single header line.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
