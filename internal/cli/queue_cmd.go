package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Event queue management",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending MSB events in Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		n, err := queue.New(rdb).Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Queue Status:\n")
		fmt.Printf("  %s: %d pending\n", queue.StreamMSBEvents, n)
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueStatusCmd)
}
