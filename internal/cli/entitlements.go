package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print the effective entitlement of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			db, err := e.connect(e.cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			ent, err := e.engine(db).GetEffectiveEntitlement(ctx, userID)
			if err != nil {
				return err
			}
			return e.printJSON(ent)
		},
	}
}

func newGrantCmd(e *env) *cobra.Command {
	var (
		reason    string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "grant <user-id> <feature> <json-value>",
		Short: "Grant a feature override to a user",
		Long: "Grant a feature override. The value is JSON: true, 50, \"unlimited\",\n" +
			"\"pro\" or [\"heuristics\",\"contrast\"] depending on the feature.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			if !json.Valid([]byte(args[2])) {
				return fmt.Errorf("value %q is not valid JSON", args[2])
			}
			expiresAt, err := expiry(expiresIn, time.Now())
			if err != nil {
				return err
			}
			if !entitlement.Feature(args[1]).Known() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not a known feature; the override will be stored but has no effect\n", args[1])
			}

			db, err := e.connect(e.cfg)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			o, err := e.engine(db).GrantOverride(ctx, entitlement.GrantRequest{
				UserID:    userID,
				Feature:   args[1],
				Value:     json.RawMessage(args[2]),
				Reason:    reason,
				ExpiresAt: expiresAt,
			})
			if err != nil {
				return err
			}
			return e.printJSON(o)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the override was granted")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime of the override, e.g. 720h (default: never expires)")

	return cmd
}

// expiry turns a --expires-in flag into an absolute time. Zero means no expiry.
func expiry(d time.Duration, now time.Time) (*time.Time, error) {
	switch {
	case d == 0:
		return nil, nil
	case d < 0:
		return nil, fmt.Errorf("--expires-in must be positive, got %s", d)
	}
	t := now.UTC().Add(d)
	return &t, nil
}

func newOverridesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "overrides <user-id>",
		Short: "List every override row of a user, expired ones included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			db, err := e.connect(e.cfg)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			rows, err := services.NewOverrideService(db).ListOverrides(ctx, userID)
			if err != nil {
				return err
			}

			out := make([]dto.OverrideResponse, 0, len(rows))
			for _, o := range rows {
				out = append(out, dto.OverrideResponse{
					ID:        o.ID.String(),
					UserID:    o.UserID.String(),
					Feature:   o.Feature,
					Value:     json.RawMessage(o.Value),
					Reason:    o.Reason,
					CreatedAt: o.CreatedAt,
					ExpiresAt: o.ExpiresAt,
					Known:     entitlement.Feature(o.Feature).Known(),
				})
			}
			return e.printJSON(out)
		},
	}
}
