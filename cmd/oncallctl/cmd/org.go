package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/oncall/internal/models"
)

var (
	orgName      string
	orgPlan      string
	userOrgID    string
	userUsername string
	userEmail    string
)

// orgCmd represents the org command group
var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Organization management commands",
}

// orgCreateCmd creates an organization
var orgCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new organization",
	Long: `Create a new organization (tenant).

Available plans:
  free_public_beta (default)

Example:
  oncallctl org create --name "Acme Corp"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if orgName == "" {
			return fmt.Errorf("--name is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		org := &models.Organization{
			ID:        uuid.New().String(),
			Name:      strings.TrimSpace(orgName),
			Plan:      models.ParsePlan(orgPlan),
			CreatedAt: time.Now(),
		}
		if err := store.Organizations().Create(context.Background(), org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		fmt.Printf("\nOrganization created successfully:\n")
		fmt.Printf("  ID:   %s\n", org.ID)
		fmt.Printf("  Name: %s\n", org.Name)
		fmt.Printf("  Plan: %s\n", org.Plan)

		return nil
	},
}

// orgListCmd lists organizations
var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		orgs, err := store.Organizations().List(context.Background())
		if err != nil {
			return fmt.Errorf("list organizations: %w", err)
		}

		if len(orgs) == 0 {
			fmt.Println("No organizations found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-30s  %s\n", "ID", "NAME", "PLAN")
		fmt.Println(strings.Repeat("-", 90))
		for _, org := range orgs {
			fmt.Printf("%-36s  %-30s  %s\n", org.ID, org.Name, org.Plan)
		}
		fmt.Printf("\nTotal: %d organization(s)\n", len(orgs))

		return nil
	},
}

// userCreateCmd creates a notification recipient
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a notification recipient within an organization.

Example:
  oncallctl user create --org <org-id> --username alice --email alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userOrgID == "" {
			return fmt.Errorf("--org is required")
		}
		if userUsername == "" {
			return fmt.Errorf("--username is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if _, err := store.Organizations().GetByID(ctx, userOrgID); err != nil {
			return fmt.Errorf("organization %s: %w", userOrgID, err)
		}

		user := &models.User{
			ID:        uuid.New().String(),
			OrgID:     userOrgID,
			Username:  strings.TrimSpace(userUsername),
			Email:     strings.TrimSpace(userEmail),
			CreatedAt: time.Now(),
		}
		if err := store.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Printf("\nUser created successfully:\n")
		fmt.Printf("  ID:       %s\n", user.ID)
		fmt.Printf("  Username: %s\n", user.Username)
		fmt.Printf("  Email:    %s\n", user.Email)

		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

func init() {
	rootCmd.AddCommand(orgCmd)
	orgCmd.AddCommand(orgCreateCmd)
	orgCmd.AddCommand(orgListCmd)

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	orgCreateCmd.Flags().StringVar(&orgName, "name", "", "organization name (required)")
	orgCreateCmd.Flags().StringVar(&orgPlan, "plan", "free_public_beta", "subscription plan")
	orgCreateCmd.MarkFlagRequired("name")

	userCreateCmd.Flags().StringVar(&userOrgID, "org", "", "organization id (required)")
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.MarkFlagRequired("org")
	userCreateCmd.MarkFlagRequired("username")
}
