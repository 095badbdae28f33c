package extension

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gatehouse"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Auth.Secret = "extension-test-secret-0123456789abcdef"
	cfg.Engine.BootstrapAdmin = gatehouse.BootstrapAdmin{Username: "root", Password: "s3cret!"}
	return cfg
}

func TestStartSeedsAndIssuesTokens(t *testing.T) {
	ctx := context.Background()
	ext := New(WithConfig(testConfig()))
	require.NoError(t, ext.Init())
	require.NoError(t, ext.Start(ctx))
	t.Cleanup(func() { _ = ext.Stop(ctx) })

	require.NoError(t, ext.Health(ctx))

	ok, err := ext.Engine().RoleExists(ctx, gatehouse.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotNil(t, ext.Accounts())
	tok, err := ext.Accounts().Login(ctx, "root", "s3cret!")
	require.NoError(t, err)

	p, err := ext.Accounts().Issuer().Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Contains(t, p.Roles, gatehouse.RoleAdmin)

	assert.NotNil(t, ext.Handler())
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ext := New(WithConfig(testConfig()))
	require.NoError(t, ext.Init())
	require.NoError(t, ext.Start(ctx))
	require.NoError(t, ext.seed(ctx))

	roles, err := ext.Engine().ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestSeedTenants(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.SeedTenants = []int64{10, 20}
	ext := New(WithConfig(cfg), WithDisableMigrate())
	require.NoError(t, ext.Init())
	require.NoError(t, ext.Start(ctx))

	for _, tenant := range cfg.SeedTenants {
		ok, err := ext.Engine().RoleExists(gatehouse.WithTenant(ctx, tenant), gatehouse.RoleDataManager)
		require.NoError(t, err)
		assert.True(t, ok, "tenant %d", tenant)
	}
}

func TestNoSecretDisablesAccounts(t *testing.T) {
	cfg := DefaultConfig()
	ext := New(WithConfig(cfg), WithDisableSeed())
	require.NoError(t, ext.Init())
	assert.Nil(t, ext.Accounts())
}

func TestWeakSecretFailsInit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Secret = "short"
	ext := New(WithConfig(cfg))
	assert.Error(t, ext.Init())
}

func TestInvalidTrustedProxyFailsInit(t *testing.T) {
	cfg := testConfig()
	cfg.TrustedProxies = []string{"10.0.0.0/8", "proxy.internal"}
	ext := New(WithConfig(cfg))
	assert.Error(t, ext.Init())

	cfg.TrustedProxies = []string{"10.0.0.0/8"}
	ext = New(WithConfig(cfg))
	require.NoError(t, ext.Init())
	require.Len(t, ext.proxies, 1)
}

func TestNewDriver(t *testing.T) {
	d, err := NewDriver(DriverMemory, nil)
	require.NoError(t, err)
	assert.NotNil(t, d)

	_, err = NewDriver(DriverPostgres, nil)
	assert.Error(t, err)

	_, err = NewDriver("oracle", nil)
	assert.Error(t, err)
}

func TestStartBeforeInit(t *testing.T) {
	ext := New()
	assert.Error(t, ext.Start(context.Background()))
	assert.NoError(t, ext.Stop(context.Background()))
}
