package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVerifyServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	prev := recaptchaVerifyURL
	recaptchaVerifyURL = srv.URL
	t.Cleanup(func() {
		recaptchaVerifyURL = prev
		srv.Close()
	})
}

func TestVerifyRecaptchaPassesWithoutSecret(t *testing.T) {
	os.Unsetenv("RECAPTCHA_SECRET")

	ok, err := verifyRecaptcha(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRecaptchaSuccess(t *testing.T) {
	os.Setenv("RECAPTCHA_SECRET", "secret")
	defer os.Unsetenv("RECAPTCHA_SECRET")

	withVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostFormValue("secret"))
		assert.Equal(t, "client-token", r.PostFormValue("response"))
		w.Write([]byte(`{"success": true}`))
	})

	ok, err := verifyRecaptcha(context.Background(), "client-token")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRecaptchaFailure(t *testing.T) {
	os.Setenv("RECAPTCHA_SECRET", "secret")
	defer os.Unsetenv("RECAPTCHA_SECRET")

	withVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	})

	ok, err := verifyRecaptcha(context.Background(), "bad-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRecaptchaUpstreamError(t *testing.T) {
	os.Setenv("RECAPTCHA_SECRET", "secret")
	defer os.Unsetenv("RECAPTCHA_SECRET")

	withVerifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := verifyRecaptcha(context.Background(), "token")
	assert.Error(t, err)
}
