package extension

import (
	"time"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
)

// Config holds the gatehouse extension configuration. Hosts pass it with
// WithConfig; the gatehouse command decodes it with viper from a config
// file and GATEHOUSE_* environment variables.
type Config struct {
	// Driver selects the backend when no store is provided or registered
	// in the container: memory, postgres, sqlite or mongo. The SQL and
	// document backends use the *grove.DB registered in the container.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableSeed prevents reconciling the default roles, permissions and
	// grants on start.
	DisableSeed bool `json:"disable_seed" mapstructure:"disable_seed" yaml:"disable_seed"`

	// SeedTenants lists the tenants seeded on start. Empty seeds only the
	// engine's default tenant.
	SeedTenants []int64 `json:"seed_tenants" mapstructure:"seed_tenants" yaml:"seed_tenants"`

	// EnableMetrics registers the Prometheus plugin with the default registerer.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// CacheSize bounds the in-memory requirement cache. Zero disables it.
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size"`

	// TrustedProxies lists the proxy addresses or networks whose
	// X-Forwarded-For header names the client in check logs.
	TrustedProxies []string `json:"trusted_proxies" mapstructure:"trusted_proxies" yaml:"trusted_proxies"`

	// DefaultRole is granted to self-registered accounts.
	DefaultRole string `json:"default_role" mapstructure:"default_role" yaml:"default_role"`

	// Engine configures the authorization engine.
	Engine gatehouse.Config `json:"engine" mapstructure:"engine" yaml:"engine"`

	// Auth configures token issuance. The account endpoints are registered
	// only when Auth.Secret is set.
	Auth auth.Config `json:"auth" mapstructure:"auth" yaml:"auth"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	cfg := gatehouse.DefaultConfig()
	cfg.CacheTTL = 5 * time.Minute
	return Config{
		Driver:      DriverMemory,
		CacheSize:   10000,
		DefaultRole: gatehouse.RoleUser,
		Engine:      cfg,
		Auth:        auth.DefaultConfig(),
	}
}
