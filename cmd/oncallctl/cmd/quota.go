package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/oncall/internal/quota"
)

var (
	quotaOrgID    string
	quotaUsername string
)

// quotaCmd represents the quota command group
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Notification quota commands",
}

// quotaReportCmd prints a user's quota report
var quotaReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a user's notification quota for the current period",
	Long: `Show how many notifications a user has left in the current
accounting period under the organization's subscription plan.

Example:
  oncallctl quota report --org <org-id> --user alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if quotaOrgID == "" {
			return fmt.Errorf("--org is required")
		}
		if quotaUsername == "" {
			return fmt.Errorf("--user is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		org, err := store.Organizations().GetByID(ctx, quotaOrgID)
		if err != nil {
			return fmt.Errorf("organization %s: %w", quotaOrgID, err)
		}
		user, err := store.Users().GetByUsername(ctx, org.ID, quotaUsername)
		if err != nil {
			return fmt.Errorf("user %q: %w", quotaUsername, err)
		}

		strategy := quota.StrategyFor(org, store.Notifications())
		report, err := strategy.WebReport(ctx, user)
		if err != nil {
			return fmt.Errorf("quota report: %w", err)
		}
		emailsLeft, err := strategy.EmailsLeft(ctx, user)
		if err != nil {
			return fmt.Errorf("emails left: %w", err)
		}

		fmt.Printf("\nQuota for %s (%s plan)\n", user.Username, org.Plan)
		fmt.Printf("Period: %s\n\n", report.PeriodTitle)
		for _, limit := range report.Limits {
			fmt.Printf("  %-20s %d of %d left\n", limit.Title, limit.Left, limit.Total)
		}
		fmt.Printf("  %-20s %d left\n", "Emails", emailsLeft)
		if report.ShowWarning {
			fmt.Printf("\nWarning: %s\n", report.WarningText)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaReportCmd)

	quotaReportCmd.Flags().StringVar(&quotaOrgID, "org", "", "organization id (required)")
	quotaReportCmd.Flags().StringVar(&quotaUsername, "user", "", "username (required)")
	quotaReportCmd.MarkFlagRequired("org")
	quotaReportCmd.MarkFlagRequired("user")
}
