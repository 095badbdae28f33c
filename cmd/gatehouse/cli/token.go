package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		userID      int64
		tenantID    int64
		username    string
		roles       []string
		permissions []string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Long: `Sign a token with the configured auth secret carrying the given claims.
The token is not backed by a stored session: routes behind the session
gate still reject it unless the user is logged in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("token: auth.secret is not configured (set GATEHOUSE_AUTH_SECRET)")
			}
			if ttl > 0 {
				cfg.Auth.TTL = ttl
			}
			if tenantID == 0 {
				tenantID = cfg.Engine.DefaultTenantID
			}
			issuer, err := auth.NewIssuer(cfg.Auth)
			if err != nil {
				return err
			}
			token, expires, err := issuer.Issue(&gatehouse.Principal{
				UserID:      userID,
				TenantID:    tenantID,
				Username:    username,
				Roles:       roles,
				Permissions: permissions,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "# expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 1, "subject user ID")
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant ID (default: engine default tenant)")
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable)")
	cmd.Flags().StringSliceVar(&permissions, "permission", nil, "permission claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: auth.ttl)")

	return cmd
}
