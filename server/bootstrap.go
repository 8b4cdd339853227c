package server

import (
	"fmt"

	"github.com/jrsteele09/go-clinic-client/users"
	"github.com/rs/zerolog/log"
)

// SeedDemoUsers adds one account per clinic role, all sharing
// users.DemoPassword. Existing accounts with the same email are kept.
func SeedDemoUsers(repo users.UserRepo) error {
	log.Info().Msg("🔧 Bootstrap: seeding demo accounts...")

	hash, err := users.HashPassword(users.DemoPassword)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	for _, u := range users.DemoUsers() {
		if _, err := repo.GetByEmail(u.Email); err == nil {
			continue
		}
		u.PasswordHash = hash
		if err := repo.Upsert(u); err != nil {
			return fmt.Errorf("failed to seed %s: %w", u.Email, err)
		}
		log.Info().Msgf("   %-24s %v", u.Email, u.RoleStrings())
	}

	log.Info().Msgf("✅ Bootstrap complete: demo password is %q", users.DemoPassword)
	return nil
}
