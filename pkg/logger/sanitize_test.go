package logger

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"a@example.co.uk", "a@*******.**.uk"},
		{"not-an-email", "[invalid-email]"},
		{"a@b@c", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.email), tt.email)
	}
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "", RedactQuery(""))

	out := RedactQuery("page=2&password=hunter2&accessToken=abc")
	values, err := url.ParseQuery(out)
	require.NoError(t, err)
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, redacted, values.Get("password"))
	assert.Equal(t, redacted, values.Get("accessToken"))

	assert.Equal(t, redacted, RedactQuery("%zz"))
}

func TestRedactPath(t *testing.T) {
	assert.Equal(t, "/user/reset-password/a****@*******.com", RedactPath("/user/reset-password/alice@example.com"))
	assert.Equal(t, "/user/list", RedactPath("/user/list"))
}
