package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("EMAIL_DELIVERY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROVISIONING_COMPENSATE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EmailProviderLog, cfg.Email.Provider)
	assert.Equal(t, EmailDeliveryDirect, cfg.Email.Delivery)
	assert.Equal(t, "profile-pictures", cfg.Storage.ProfilePicturesBucket)
	assert.False(t, cfg.Provisioning.Compensate)
	assert.Equal(t, 30*time.Second, cfg.Email.SendTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("EMAIL_API_KEY", "SG.key")
	t.Setenv("EMAIL_DELIVERY", "queue")
	t.Setenv("PROVISIONING_COMPENSATE", "true")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EmailProviderSendGrid, cfg.Email.Provider)
	assert.Equal(t, EmailDeliveryQueue, cfg.Email.Delivery)
	assert.True(t, cfg.Provisioning.Compensate)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoadRejectsIncompleteProvider(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	assert.ErrorContains(t, err, "SMTP_HOST")
}

func TestLoadRejectsUnknownDelivery(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "log")
	t.Setenv("EMAIL_DELIVERY", "carrier-pigeon")

	_, err := Load()
	assert.ErrorContains(t, err, "EMAIL_DELIVERY")
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "talentdesk", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/talentdesk?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/x"
	assert.Equal(t, "postgres://elsewhere/x", c.DSN())
}
