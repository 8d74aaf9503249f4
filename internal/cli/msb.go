package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/queue"
	"github.com/eaobservatory/omp/internal/store"
)

var msbCmd = &cobra.Command{
	Use:   "msb",
	Short: "MSB acceptance and the done-log",
}

func msbOpCommand(use, short, verb string,
	op func(s *store.Store, ctx context.Context, project, checksum, comment string) (*store.Result, error)) *cobra.Command {

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			checksum, _ := cmd.Flags().GetString("checksum")
			comment, _ := cmd.Flags().GetString("comment")
			if project == "" || checksum == "" {
				return fmt.Errorf("--project and --checksum are required")
			}

			ctx := context.Background()
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

			s := store.New(pool, queue.New(rdb))
			res, err := op(s, ctx, project, checksum, comment)
			if err != nil {
				return err
			}

			fmt.Printf("%s %q (%s)\n", verb, res.MSB.Title, res.MSB.Checksum)
			fmt.Printf("  remaining:   %d\n", res.MSB.Remaining)
			fmt.Printf("  transaction: %s\n", res.TransactionID)
			return nil
		},
	}
	cmd.Flags().String("project", "", "project ID")
	cmd.Flags().String("checksum", "", "MSB checksum (stale ancestry suffixes are tolerated)")
	cmd.Flags().String("comment", "", "operator comment for the done-log")
	return cmd
}

var msbHistoryCmd = &cobra.Command{
	Use:   "history <project>",
	Short: "Show the project's MSB done-log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		entries, err := store.New(pool, nil).DoneHistory(ctx, args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("(no MSB activity)")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-8s %-24s %s\n",
				e.DoneAt.Format("2006-01-02 15:04"), e.Status, e.Title, e.Checksum)
			if e.Comment != "" {
				fmt.Printf("    %s\n", e.Comment)
			}
		}
		return nil
	},
}

func init() {
	msbCmd.AddCommand(msbOpCommand(
		"accept", "Record one observation of an MSB", "Accepted",
		func(s *store.Store, ctx context.Context, project, checksum, comment string) (*store.Result, error) {
			return s.AcceptMSB(ctx, project, checksum, comment)
		}))
	msbCmd.AddCommand(msbOpCommand(
		"undo", "Reverse a previous accept's counter decrement", "Undone",
		func(s *store.Store, ctx context.Context, project, checksum, comment string) (*store.Result, error) {
			return s.UndoMSB(ctx, project, checksum, comment)
		}))
	msbCmd.AddCommand(msbOpCommand(
		"complete", "Mark an MSB fully done regardless of repeats left", "Completed",
		func(s *store.Store, ctx context.Context, project, checksum, comment string) (*store.Result, error) {
			return s.CompleteMSB(ctx, project, checksum, comment)
		}))
	msbCmd.AddCommand(msbHistoryCmd)
}
