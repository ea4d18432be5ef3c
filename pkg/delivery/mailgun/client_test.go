package mailgun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	var captured struct {
		path string
		user string
		pass string
		form map[string]string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		captured.user = user
		captured.pass = pass

		require.NoError(t, r.ParseForm())
		captured.form = map[string]string{
			"from":    r.PostFormValue("from"),
			"to":      r.PostFormValue("to"),
			"subject": r.PostFormValue("subject"),
			"html":    r.PostFormValue("html"),
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("key-456", "mg.fixlify.com", "no-reply@fixlify.com", WithBaseURL(server.URL))

	err := client.SendEmail(context.Background(), "dana@example.com", "Invoice ready", "<p>Hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "/mg.fixlify.com/messages", captured.path)
	assert.Equal(t, "api", captured.user)
	assert.Equal(t, "key-456", captured.pass)
	assert.Equal(t, map[string]string{
		"from":    "no-reply@fixlify.com",
		"to":      "dana@example.com",
		"subject": "Invoice ready",
		"html":    "<p>Hi</p>",
	}, captured.form)
}

func TestSendEmailErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Forbidden", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", "mg.fixlify.com", "no-reply@fixlify.com", WithBaseURL(server.URL))

	err := client.SendEmail(context.Background(), "dana@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
