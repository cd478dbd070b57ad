package email

import (
	"net/smtp"
	"testing"
	"time"

	"persona-stack/internal/models"
	"persona-stack/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDigest() *models.ConsolidationDigest {
	now := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	product := &models.Product{ID: 1, Name: "Focus Course"}
	product.Consolidated = models.ConsolidatedProduct{
		TopPersonas: []models.ConsolidatedPersona{
			{Name: "Busy Parent", Age: "35-45", Occupation: "Nurse", SourceName: "Launch video"},
		},
		PainPoints: []models.FieldCount{
			{Text: "no time", Frequency: 3},
			{Text: "<script>", Frequency: 1},
		},
		TotalPersonas:      1,
		YouTubePersonas:    1,
		LastConsolidatedAt: &now,
	}
	return &models.ConsolidationDigest{Date: now, Products: []*models.Product{product}, Analyzed: 42, Errors: 2}
}

func TestRenderDigest(t *testing.T) {
	body, err := RenderDigest(testDigest())
	require.NoError(t, err)

	assert.Contains(t, body, "Focus Course")
	assert.Contains(t, body, "Busy Parent")
	assert.Contains(t, body, "42 items analyzed")
	assert.Contains(t, body, "no time")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestSendDigest(t *testing.T) {
	cfg := &config.EmailConfig{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		FromEmail:  "agent@example.com",
		ToEmail:    "team@example.com",
	}

	t.Run("SkipsEmptyDigest", func(t *testing.T) {
		s := NewSender(cfg)
		called := false
		s.send = func(string, smtp.Auth, string, []string, []byte) error {
			called = true
			return nil
		}

		require.NoError(t, s.SendDigest(&models.ConsolidationDigest{}))
		assert.False(t, called)
	})

	t.Run("RejectsNil", func(t *testing.T) {
		assert.Error(t, NewSender(cfg).SendDigest(nil))
	})

	t.Run("Sends", func(t *testing.T) {
		s := NewSender(cfg)
		var gotAddr string
		var gotMsg []byte
		s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr = addr
			gotMsg = msg
			assert.Equal(t, "agent@example.com", from)
			assert.Equal(t, []string{"team@example.com"}, to)
			return nil
		}

		require.NoError(t, s.SendDigest(testDigest()))
		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Contains(t, string(gotMsg), "Subject: Buyer Persona Digest - 1 Products Consolidated (Mar 14, 2026)")
		assert.Contains(t, string(gotMsg), "Content-Type: text/html")
	})
}
