package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvironmentProduction is the deployment environment name that enables
// production-only behavior such as secure cookies.
const EnvironmentProduction = "production"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// IsProduction reports whether the named deployment environment is production.
func IsProduction(environment string) bool {
	return strings.EqualFold(strings.TrimSpace(environment), EnvironmentProduction)
}
