package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var heartbeatChannelID string

// heartbeatCmd represents the heartbeat command group
var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Heartbeat record inspection commands",
}

// heartbeatListCmd lists heartbeat records of a channel
var heartbeatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List heartbeat records of a channel",
	Long: `List the heartbeat records of one channel, including liveness state
and the computed expiration time.

Example:
  oncallctl heartbeat list --channel <channel-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if heartbeatChannelID == "" {
			return fmt.Errorf("--channel is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		heartbeats, err := store.Heartbeats().ListByChannel(context.Background(), heartbeatChannelID)
		if err != nil {
			return fmt.Errorf("list heartbeats: %w", err)
		}

		if len(heartbeats) == 0 {
			fmt.Println("No heartbeat records found.")
			return nil
		}

		now := time.Now()
		fmt.Printf("\n%-20s  %-25s  %-8s  %-7s  %-20s  %s\n",
			"ID", "TITLE", "TIMEOUT", "STATE", "LAST SIGNAL", "EXPIRES")
		fmt.Println(strings.Repeat("-", 110))

		for _, hb := range heartbeats {
			state := "alive"
			if !hb.Alive {
				state = "dead"
			} else if hb.IsExpired(now) {
				state = "expired"
			}
			fmt.Printf("%-20s  %-25s  %-8d  %-7s  %-20s  %s\n",
				hb.UserDefinedID,
				hb.Title,
				hb.TimeoutSeconds,
				state,
				hb.LastSignalAt.Format("2006-01-02 15:04:05"),
				hb.ExpirationTime().Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d heartbeat(s)\n", len(heartbeats))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(heartbeatCmd)
	heartbeatCmd.AddCommand(heartbeatListCmd)

	heartbeatListCmd.Flags().StringVar(&heartbeatChannelID, "channel", "", "channel id (required)")
	heartbeatListCmd.MarkFlagRequired("channel")
}
