package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/accounting"
	"github.com/eaobservatory/omp/internal/queue"
)

var acctCmd = &cobra.Command{
	Use:   "acct",
	Short: "Time accounting",
}

var acctRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the accounting consumer (blocks; Ctrl-C to stop)",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		a := accounting.New(pool, queue.New(rdb), logger)
		if err := a.Run(ctx, consumer); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var acctShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project's per-night charged time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		a := accounting.New(pool, nil, nil)
		totals, err := a.Totals(ctx, args[0])
		if err != nil {
			return err
		}
		if len(totals) == 0 {
			fmt.Println("(no time charged)")
			return nil
		}
		for _, n := range totals {
			status := "pending"
			if n.Confirmed {
				status = "confirmed"
			}
			fmt.Printf("%s  %8.1f h  %s\n",
				n.UTDate.Format("2006-01-02"), n.Seconds/3600, status)
		}
		return nil
	},
}

func init() {
	acctRunCmd.Flags().String("consumer", "acct_1", "consumer name within the group")
	acctCmd.AddCommand(acctRunCmd)
	acctCmd.AddCommand(acctShowCmd)
}
