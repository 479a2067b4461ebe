package cli

import (
	"fmt"

	"github.com/designpulse/feedback-backend/internal/catalog"
	"github.com/designpulse/feedback-backend/internal/database"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/subscription"
)

func newSeedCatalogCmd(e *env) *cobra.Command {
	var (
		file    string
		migrate bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Upsert plans and prices from a catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = e.cfg.CatalogPath
			}
			f, err := catalog.LoadOrDefault(file)
			if err != nil {
				return err
			}
			if err := f.Validate(e.cfg.FreePlanSlug); err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(e.out, "catalog %s is valid: %d plans\n", file, len(f.Plans))
				return nil
			}

			db, err := e.connect(e.cfg)
			if err != nil {
				return err
			}
			if migrate {
				if err := database.MigrateShared(); err != nil {
					return err
				}
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := catalog.Apply(ctx, db, f, e.cfg.FreePlanSlug); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "applied %d plans\n", len(f.Plans))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog JSON file (default: CATALOG_PATH)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations first")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the catalog without writing")

	return cmd
}

func newSyncSubscriptionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-subscription <stripe-subscription-id>",
		Short: "Fetch a subscription from Stripe and reconcile the local mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.StripeSecretKey == "" {
				return fmt.Errorf("STRIPE_SECRET_KEY is required")
			}
			stripe.Key = e.cfg.StripeSecretKey

			params := &stripe.SubscriptionParams{}
			params.AddExpand("items.data.price")
			remote, err := subscription.Get(args[0], params)
			if err != nil {
				return fmt.Errorf("failed to fetch subscription %s: %w", args[0], err)
			}

			db, err := e.connect(e.cfg)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			sub, err := services.NewSubscriptionService(db).ApplyStripeSubscription(ctx, remote)
			if err != nil {
				return err
			}
			return e.printJSON(sub)
		},
	}
}
