// Package cli implements entitlementctl, the operator tool for inspecting
// entitlements, granting overrides and seeding the plan catalog.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/database"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/logging"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is shared by all subcommands. connect is replaced in tests.
type env struct {
	cfg     *config.Config
	out     io.Writer
	connect func(cfg *config.Config) (*gorm.DB, error)
}

func defaultConnect(cfg *config.Config) (*gorm.DB, error) {
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return database.DB, nil
}

// NewRootCmd creates the root cobra command for entitlementctl.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{out: os.Stdout, connect: defaultConnect})
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Inspect and administer user entitlements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if e.cfg == nil {
				e.cfg = config.Load()
			}
			logging.Setup(e.cfg.AppEnv)
		},
	}

	root.AddCommand(newShowCmd(e))
	root.AddCommand(newGrantCmd(e))
	root.AddCommand(newOverridesCmd(e))
	root.AddCommand(newSeedCatalogCmd(e))
	root.AddCommand(newSyncSubscriptionCmd(e))

	root.PersistentFlags().Duration("timeout", 10*time.Second, "overall command timeout")

	return root
}

func (e *env) engine(db *gorm.DB) *entitlement.Engine {
	return entitlement.NewEngine(services.NewEntitlementStore(db), entitlement.Options{
		FreePlanSlug: e.cfg.FreePlanSlug,
		Timeout:      e.cfg.StoreTimeout,
	})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
