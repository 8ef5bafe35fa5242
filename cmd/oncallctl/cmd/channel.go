package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/oncall/internal/models"
)

var (
	channelOrgID       string
	channelName        string
	channelIntegration string
	channelSlug        string
	channelUnlimited   bool
)

// channelCmd represents the channel command group
var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Integration channel management commands",
	Long: `Commands for managing integration channels.

Each channel is one inbound integration endpoint, identified by a secret
token that monitoring sources embed in their webhook URL.

Examples:
  # Create a Grafana channel
  oncallctl channel create --org <org-id> --name "prod grafana" --integration grafana

  # List all channels
  oncallctl channel list

  # Delete a channel
  oncallctl channel delete <channel-id>`,
}

// channelCreateCmd creates a new channel
var channelCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new integration channel",
	Long: `Create a new integration channel and print its secret token.

Available integrations:
  alertmanager, grafana_alerting, grafana, amazon_sns, webhook, email

The generated token is the {channelKey} path segment of the integration
URL. It is shown once here; treat it as a secret.

Example:
  oncallctl channel create --org <org-id> --name "prod alertmanager" --integration alertmanager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if channelOrgID == "" {
			return fmt.Errorf("--org is required")
		}
		if channelName == "" {
			return fmt.Errorf("--name is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if _, err := store.Organizations().GetByID(ctx, channelOrgID); err != nil {
			return fmt.Errorf("organization %s: %w", channelOrgID, err)
		}

		channel := models.NewChannel(channelOrgID, strings.TrimSpace(channelName), models.ParseIntegration(channelIntegration))
		channel.ID = uuid.New().String()
		channel.Token = strings.ReplaceAll(uuid.New().String(), "-", "")
		channel.Slug = channelSlug
		channel.AllowUnlimited = channelUnlimited

		if err := store.Channels().Create(ctx, channel); err != nil {
			return fmt.Errorf("create channel: %w", err)
		}

		fmt.Printf("\nChannel created successfully:\n")
		fmt.Printf("  ID:          %s\n", channel.ID)
		fmt.Printf("  Name:        %s\n", channel.Name)
		fmt.Printf("  Integration: %s\n", channel.Integration.DisplayName())
		fmt.Printf("  Token:       %s\n", channel.Token)
		fmt.Printf("\nIntegration URL path: /integrations/%s/%s\n", channel.Integration, channel.Token)

		return nil
	},
}

// channelListCmd lists all channels
var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all integration channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		channels, err := store.Channels().List(context.Background())
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}

		if len(channels) == 0 {
			fmt.Println("No channels found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-25s  %-18s  %-9s  %s\n",
			"ID", "NAME", "INTEGRATION", "UNLIMITED", "CREATED")
		fmt.Println(strings.Repeat("-", 110))

		for _, ch := range channels {
			fmt.Printf("%-36s  %-25s  %-18s  %-9v  %s\n",
				ch.ID,
				ch.Name,
				ch.Integration,
				ch.AllowUnlimited,
				ch.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d channel(s)\n", len(channels))

		return nil
	},
}

// channelDeleteCmd deletes a channel
var channelDeleteCmd = &cobra.Command{
	Use:   "delete <channel-id>",
	Short: "Delete an integration channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Channels().Delete(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete channel: %w", err)
		}

		fmt.Printf("Channel %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelCmd)
	channelCmd.AddCommand(channelCreateCmd)
	channelCmd.AddCommand(channelListCmd)
	channelCmd.AddCommand(channelDeleteCmd)

	channelCreateCmd.Flags().StringVar(&channelOrgID, "org", "", "organization id (required)")
	channelCreateCmd.Flags().StringVar(&channelName, "name", "", "channel name (required)")
	channelCreateCmd.Flags().StringVar(&channelIntegration, "integration", "webhook", "integration kind")
	channelCreateCmd.Flags().StringVar(&channelSlug, "slug", "", "integration type slug for universal webhook channels")
	channelCreateCmd.Flags().BoolVar(&channelUnlimited, "allow-unlimited", false, "exempt the channel from rate limiting")
	channelCreateCmd.MarkFlagRequired("org")
	channelCreateCmd.MarkFlagRequired("name")
}
