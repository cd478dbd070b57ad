package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"persona-stack/internal/models"
	"persona-stack/shared/config"
)

//go:embed digest.html
var digestTemplate string

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"top": func(items []models.FieldCount, n int) []models.FieldCount {
		if len(items) > n {
			return items[:n]
		}
		return items
	},
	"date": func(t time.Time) string { return t.Format("Jan 2, 2006 15:04") },
}).Parse(digestTemplate))

type Sender struct {
	config *config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

func (s *Sender) SendDigest(digest *models.ConsolidationDigest) error {
	if digest == nil {
		return fmt.Errorf("digest cannot be nil")
	}

	if len(digest.Products) == 0 {
		return nil // Nothing was consolidated
	}

	subject := fmt.Sprintf("Buyer Persona Digest - %d Products Consolidated (%s)",
		len(digest.Products), digest.Date.Format("Jan 2, 2006"))

	body, err := RenderDigest(digest)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return s.send(addr, auth, s.config.FromEmail, to, msg)
}

// RenderDigest renders the HTML body for a consolidation digest.
func RenderDigest(digest *models.ConsolidationDigest) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}
