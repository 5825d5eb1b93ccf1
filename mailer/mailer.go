// Package mailer sends transactional email through the SMTP relay configured
// via SMTP_* environment variables. When SMTP_HOST is unset, sends become
// no-ops so development setups work without a relay.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"instrevi/config"
	"instrevi/logging"
)

type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func FromEnv() *Mailer {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil || port == 0 {
		port = 465
	}
	return &Mailer{
		Host: os.Getenv("SMTP_HOST"),
		Port: port,
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: config.Getenv("SMTP_FROM", os.Getenv("SMTP_USER")),
	}
}

func (m *Mailer) Enabled() bool {
	return m.Host != ""
}

// Send delivers a multipart text+html message. Unconfigured mailers log and
// return nil; callers treat email as best-effort everywhere.
func (m *Mailer) Send(to, subject, text, html string) error {
	if !m.Enabled() {
		logging.Log.Warn("SMTP not configured, skipping email to " + to)
		return nil
	}

	msg := m.buildMessage(to, subject, text, html)
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)

	// Port 465 is implicit TLS; everything else goes through SendMail,
	// which upgrades with STARTTLS when the server offers it.
	if m.Port != 465 {
		return smtp.SendMail(addr, auth, m.From, []string{to}, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(m.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *Mailer) buildMessage(to, subject, text, html string) []byte {
	const boundary = "instrevi-alt"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func frontendURL() string {
	return config.Getenv("FRONTEND_URL", "http://localhost:3000")
}

func (m *Mailer) SendVerification(to, token string) error {
	verifyURL := frontendURL() + "/verify-email?token=" + token
	return m.Send(to,
		"Verify your Instrevi account",
		fmt.Sprintf("Visit %s to verify your email.", verifyURL),
		fmt.Sprintf(`<p>Click <a href=%q>here</a> to verify your email for Instrevi.</p><p>If you did not sign up, ignore this email.</p>`, verifyURL),
	)
}

func (m *Mailer) SendPasswordReset(to, token string) error {
	resetURL := frontendURL() + "/reset-password?token=" + token
	return m.Send(to,
		"Instrevi password reset",
		fmt.Sprintf("Visit %s to reset your password.", resetURL),
		fmt.Sprintf(`<p>Click <a href=%q>here</a> to reset your password for Instrevi.</p>`, resetURL),
	)
}
