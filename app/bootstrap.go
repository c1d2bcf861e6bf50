// app/bootstrap.go
package app

import (
	"context"

	"equipment_lending/services"

	"github.com/rs/zerolog"
)

// BootstrapFirstAdmin creates the configured admin account when no admin exists.
func BootstrapFirstAdmin(ctx context.Context, cfg Config, auth *services.AuthService, log zerolog.Logger) {
	if cfg.BootstrapUser == "" || cfg.BootstrapPwd == "" {
		return
	}
	email := cfg.BootstrapMail
	if email == "" {
		email = cfg.BootstrapUser + "@localhost.localdomain"
	}
	created, err := auth.EnsureAdmin(ctx, services.SignupInput{
		Username:  cfg.BootstrapUser,
		Email:     email,
		Password:  cfg.BootstrapPwd,
		FirstName: "Admin",
	})
	if err != nil {
		log.Error().Err(err).Str("username", cfg.BootstrapUser).Msg("bootstrap admin")
		return
	}
	if created {
		log.Warn().Str("username", cfg.BootstrapUser).Msg("[BOOTSTRAP] no admin found, created one; change its password")
	}
}
