package gatehouse

import "time"

// Config holds configuration for the gatehouse engine.
type Config struct {
	// ValidateFromClaims selects the token-claims role validator. When
	// false, roles and permissions are re-read from the store per check.
	// Defaults to true.
	ValidateFromClaims *bool `json:"validate_from_claims,omitempty" mapstructure:"validate_from_claims" yaml:"validate_from_claims"`

	// DefaultTenantID is used when neither the context nor a forge scope
	// carries a tenant. Zero disables the fallback.
	DefaultTenantID int64 `json:"default_tenant_id,omitempty" mapstructure:"default_tenant_id" yaml:"default_tenant_id"`

	// CacheTTL is the time-to-live for cached action requirements.
	// Zero means no caching.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// LockWholeOperation holds the tenant gate across each manager
	// operation so its existence checks and writes run as one unit.
	// Defaults to true.
	LockWholeOperation *bool `json:"lock_whole_operation,omitempty" mapstructure:"lock_whole_operation" yaml:"lock_whole_operation"`

	// AuditDecisions writes a check log entry for every authorization
	// decision. Defaults to false.
	AuditDecisions *bool `json:"audit_decisions,omitempty" mapstructure:"audit_decisions" yaml:"audit_decisions"`

	// BootstrapAdmin is the account the default seed creates.
	BootstrapAdmin BootstrapAdmin `json:"bootstrap_admin" mapstructure:"bootstrap_admin" yaml:"bootstrap_admin"`
}

// BootstrapAdmin names the seeded administrator account.
type BootstrapAdmin struct {
	Username string `json:"username,omitempty" mapstructure:"username" yaml:"username"`
	Password string `json:"-" mapstructure:"password" yaml:"password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		ValidateFromClaims: &t,
		DefaultTenantID:    1,
		LockWholeOperation: &t,
		BootstrapAdmin: BootstrapAdmin{
			Username: "admin",
		},
	}
}

func (c Config) validateFromClaims() bool { return c.ValidateFromClaims == nil || *c.ValidateFromClaims }
func (c Config) lockWholeOperation() bool { return c.LockWholeOperation == nil || *c.LockWholeOperation }
func (c Config) auditDecisions() bool     { return c.AuditDecisions != nil && *c.AuditDecisions }
