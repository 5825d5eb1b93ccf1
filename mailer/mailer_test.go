package mailer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	os.Unsetenv("SMTP_HOST")
	os.Unsetenv("SMTP_PORT")
	os.Unsetenv("SMTP_FROM")
	os.Setenv("SMTP_USER", "relay@example.com")
	defer os.Unsetenv("SMTP_USER")

	m := FromEnv()

	assert.Equal(t, 465, m.Port)
	assert.Equal(t, "relay@example.com", m.From)
	assert.False(t, m.Enabled())
}

func TestSendIsNoOpWhenUnconfigured(t *testing.T) {
	m := &Mailer{}
	assert.NoError(t, m.Send("user@example.com", "hi", "text", "<p>html</p>"))
}

func TestBuildMessage(t *testing.T) {
	m := &Mailer{From: "noreply@instrevi.app"}
	msg := string(m.buildMessage("user@example.com", "Verify your Instrevi account", "plain body", "<p>html body</p>"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@instrevi.app\r\n"))
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Verify your Instrevi account\r\n")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "plain body")
	assert.Contains(t, msg, "<p>html body</p>")
	assert.True(t, strings.HasSuffix(msg, "--instrevi-alt--\r\n"))
}
