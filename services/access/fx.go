package access

import (
	"smallbiznis-license/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("access.module",
	fx.Provide(
		NewCredential,
		NewEnforcer,
		NewGuard,
	),
)

// NewCredential prefers ADMIN_SECRET_HASH over ADMIN_SECRET. With neither set
// every administrative call is rejected.
func NewCredential(cfg *config.Config) (Credential, error) {
	if cfg.Admin.SecretHash != "" {
		return NewBcryptCredential(cfg.Admin.SecretHash)
	}

	if cfg.Admin.Secret == "" {
		zap.L().Warn("[access] no admin secret configured, admin routes are locked")
	}
	return StaticCredential(cfg.Admin.Secret), nil
}
