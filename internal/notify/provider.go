package notify

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/talentdesk/backend/config"
)

// NewProviderSender builds the sender that actually delivers mail for cfg.Provider.
func NewProviderSender(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.EmailProviderSendGrid:
		return NewSendGridSender(cfg.APIKey, cfg.FromName, cfg.FromAddress), nil
	case config.EmailProviderSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			FromName:    cfg.FromName,
			FromAddress: cfg.FromAddress,
		}), nil
	case config.EmailProviderLog, "":
		return NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}
