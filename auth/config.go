// Package auth issues and verifies the bearer tokens gatehouse principals
// are read from, hashes account passwords, and implements the account
// flows (register, login, logout, refresh) on top of the engine.
package auth

import "time"

// MinSecretLength is the shortest HMAC secret NewIssuer accepts.
const MinSecretLength = 32

// Config configures token issuance.
type Config struct {
	// Secret is the HS256 signing key.
	Secret string `json:"secret" mapstructure:"secret" yaml:"secret"`

	// Issuer is written to and required in the iss claim when set.
	Issuer string `json:"issuer" mapstructure:"issuer" yaml:"issuer"`

	// TTL is the lifetime of issued tokens.
	TTL time.Duration `json:"ttl" mapstructure:"ttl" yaml:"ttl"`
}

// DefaultConfig returns a config with a 15 minute token lifetime. Secret
// must still be set.
func DefaultConfig() Config {
	return Config{
		Issuer: "gatehouse",
		TTL:    15 * time.Minute,
	}
}
