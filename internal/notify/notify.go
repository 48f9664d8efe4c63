// Package notify renders and delivers the account emails.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"
)

// Recipient is the addressee of an account email.
type Recipient struct {
	Email     string
	FirstName string
	LastName  string
}

// EmailService sends the account lifecycle emails.
type EmailService interface {
	SendWelcome(ctx context.Context, to Recipient, agencyName, temporaryPassword string) error
	SendTemporaryPassword(ctx context.Context, to Recipient, temporaryPassword string) error
	SendAgencyAssignment(ctx context.Context, to Recipient, agencyName string, isMonitor bool) error
	SendPasswordReset(ctx context.Context, to Recipient, temporaryPassword string) error
}

// Message is a rendered email handed to a Transport.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer implements EmailService over a Transport.
type Mailer struct {
	from      string
	loginURL  string
	transport Transport
	tmpl      *template.Template
}

var _ EmailService = (*Mailer)(nil)

// NewMailer parses the bundled templates. loginURL is linked from every email.
func NewMailer(transport Transport, from, loginURL string) (*Mailer, error) {
	tmpl, err := template.New("mail").Funcs(sprig.HtmlFuncMap()).Parse(templates)
	if err != nil {
		return nil, fmt.Errorf("notify: parse templates: %w", err)
	}
	return &Mailer{from: from, loginURL: loginURL, transport: transport, tmpl: tmpl}, nil
}

func (m *Mailer) SendWelcome(ctx context.Context, to Recipient, agencyName, temporaryPassword string) error {
	return m.send(ctx, to, "Bienvenido a NutriAdmin", "welcome", map[string]any{
		"Agency":   agencyName,
		"Password": temporaryPassword,
	})
}

func (m *Mailer) SendTemporaryPassword(ctx context.Context, to Recipient, temporaryPassword string) error {
	return m.send(ctx, to, "Contraseña temporal", "temporary_password", map[string]any{
		"Password": temporaryPassword,
	})
}

func (m *Mailer) SendAgencyAssignment(ctx context.Context, to Recipient, agencyName string, isMonitor bool) error {
	return m.send(ctx, to, "Asignación de agencia", "agency_assignment", map[string]any{
		"Agency":    agencyName,
		"IsMonitor": isMonitor,
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to Recipient, temporaryPassword string) error {
	return m.send(ctx, to, "Restablecer contraseña", "password_reset", map[string]any{
		"Password": temporaryPassword,
	})
}

func (m *Mailer) send(ctx context.Context, to Recipient, subject, name string, data map[string]any) error {
	if strings.TrimSpace(to.Email) == "" {
		return fmt.Errorf("notify: %s: recipient email is required", name)
	}
	data["Name"] = strings.TrimSpace(to.FirstName + " " + to.LastName)
	data["Email"] = to.Email
	data["LoginURL"] = m.loginURL
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("notify: render %s: %w", name, err)
	}
	return m.transport.Send(ctx, Message{From: m.from, To: to.Email, Subject: subject, HTML: buf.String()})
}
