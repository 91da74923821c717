package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"batchline/internal/registry"
	"batchline/models"
)

func newBootstrapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Open the document store and make sure the admin user exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			user, created, err := reg.Users.EnsureAdmin(ctx, a.cfg.Admin.Username, a.cfg.Admin.Password)
			if err != nil {
				return fmt.Errorf("ensure admin: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case created:
				fmt.Fprintf(out, "Created admin user %s\n", user.Username)
			case !user.IsAdmin():
				fmt.Fprintf(out, "WARNING: user %s exists but has role %s\n", user.Username, user.Role)
			default:
				fmt.Fprintf(out, "Admin user %s already exists\n", user.Username)
			}
			if a.opener.Degraded() {
				fmt.Fprintln(out, "WARNING: document store unavailable, running on a non-persistent in-memory store")
			}
			return nil
		},
	}
}

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest PROCESS_ID REMAINING",
		Short: "Print the suggested per-item targets for the next sprint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remaining, err := parseRemaining(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			suggestions, err := reg.Processes.SuggestNextSprintTargets(ctx, args[0], remaining)
			if err != nil {
				return fmt.Errorf("suggest targets: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), suggestions)
		},
	}
}

func newPlanSprintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan-sprint PROCESS_ID REMAINING OPERATOR",
		Short: "Print the next sprint of a process with suggested targets, without saving it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			remaining, err := parseRemaining(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			sprint, err := reg.Processes.PlanSprint(ctx, args[0], remaining, args[2])
			if err != nil {
				return fmt.Errorf("plan sprint: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), sprint)
		},
	}
}

func newImportItemsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-items CSV",
		Short: "Import items from a CSV with Supplier and Item columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readCSV(args[0])
			if err != nil {
				return fmt.Errorf("read csv: %w", err)
			}
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			result, err := importItems(ctx, reg, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%d new suppliers, %d skipped)\n",
				result.items, result.suppliers, result.skipped)
			return nil
		},
	}
}

func newDivergenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "divergence PROCESS_ID",
		Short: "Print actual minus target per sprint and per item for a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			report, err := reg.Processes.Divergence(ctx, args[0])
			if err != nil {
				return fmt.Errorf("divergence: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newProportionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "proportions FORMULA_ID [ITEM_ID]",
		Short: "Print each item's share of a formula, or the share of one item",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				share, err := reg.Formulas.Proportion(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("proportion: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]float64{args[1]: share})
			}
			shares, err := reg.Formulas.Proportions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("proportions: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), shares)
		},
	}
}

func newCreateUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-user USERNAME PASSWORD [ROLE]",
		Short: "Create a user; ROLE admin grants the Admin role, anything else is User",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.RoleUser
			if len(args) == 3 {
				role = models.ParseRole(args[2])
			}
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			user, err := reg.Users.Create(ctx, registry.UserInput{Username: args[0], Password: args[1], Role: role})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s) with id %s\n", user.Username, user.Role, user.ID)
			return nil
		},
	}
}

func newCreateFormulaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-formula NAME ITEM_ID=SHARE...",
		Short: "Create a formula from item shares, normalised so the weights sum to one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := registry.ProportionalFormulaInput{Name: args[0]}
			for _, arg := range args[1:] {
				itemID, share, err := parseShare(arg)
				if err != nil {
					return err
				}
				in.ItemIDs = append(in.ItemIDs, itemID)
				in.Shares = append(in.Shares, share)
			}
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}

			formula, err := reg.Formulas.CreateByProportion(ctx, in)
			if err != nil {
				return fmt.Errorf("create formula: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), formula)
		},
	}
}

func parseShare(arg string) (string, float64, error) {
	itemID, raw, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(itemID) == "" {
		return "", 0, fmt.Errorf("expected ITEM_ID=SHARE, got %q", arg)
	}
	share, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("share of %s must be a number: %q", itemID, raw)
	}
	return strings.TrimSpace(itemID), share, nil
}

func parseRemaining(value string) (int, error) {
	remaining, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("remaining sprints must be an integer: %q", value)
	}
	return remaining, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
