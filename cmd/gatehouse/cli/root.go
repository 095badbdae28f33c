// Package cli implements the gatehouse command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/gatehouse/extension"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit string) error {
	return newRootCmd(version, commit).Execute()
}

func newRootCmd(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Multi-tenant role and permission authorization server",
		Long: `gatehouse serves role, permission and action-grant management and
authorization checks over HTTP, with bearer-token accounts.

Configuration is read from gatehouse.yaml (or --config) and GATEHOUSE_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gatehouse.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newVersionCmd(version, commit))

	return cmd
}

// envKeys are the settings most often supplied through the environment.
var envKeys = []string{
	"driver",
	"auth.secret",
	"auth.issuer",
	"auth.ttl",
	"engine.default_tenant_id",
	"engine.audit_decisions",
	"engine.bootstrap_admin.username",
	"engine.bootstrap_admin.password",
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gatehouse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.gatehouse")
	}

	viper.SetEnvPrefix("GATEHOUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, k := range envKeys {
		_ = viper.BindEnv(k)
	}
	viper.ReadInConfig() //nolint:errcheck // config file is optional
}

// loadConfig overlays the viper settings onto the extension defaults.
func loadConfig() (extension.Config, error) {
	cfg := extension.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(dev bool) *slog.Logger {
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
