package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationEmail(t *testing.T) {
	subject, html := ConfirmationEmail("https://laborx.io", "alice", "483920")

	assert.Equal(t, "Confirm your email address", subject)
	assert.Contains(t, html, "Hello, alice!")
	assert.Contains(t, html, "<strong>483920</strong>")
	assert.Contains(t, html, "https://laborx.io/verification/confirm-email?code=483920")
}
