package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replygate/replygate/internal/infrastructure/auth"
	"github.com/replygate/replygate/internal/infrastructure/config"
)

var (
	env       string
	scope     string
	tenantSID string
)

// NewCommand mints API tokens. Admin tokens reach every tenant; tenant
// tokens are scoped to one SID. There is no login flow, tokens are issued
// out of band by whoever operates the deployment.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVar(&scope, "scope", "tenant", "Token scope (admin or tenant)")
	cmd.Flags().StringVar(&tenantSID, "tenant", "", "Tenant SID (required for tenant scope)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var tokenScope auth.Scope
	switch scope {
	case "admin":
		tokenScope = auth.ScopeAdmin
	case "tenant":
		if tenantSID == "" {
			return fmt.Errorf("tenant scope requires --tenant")
		}
		tokenScope = auth.ScopeTenant
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	token, err := jwtService.Generate(tokenScope, tenantSID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
