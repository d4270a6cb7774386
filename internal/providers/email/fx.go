package email

import (
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromSettings),
)

// NewFromSettings builds an SMTP provider that resolves the server from the
// stored email settings on every send.
func NewFromSettings(settings settingsdomain.Accessor, log *zap.Logger) Provider {
	return NewSMTP(settings, log)
}
