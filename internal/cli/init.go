package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/db"
	"github.com/eaobservatory/omp/internal/queue"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema and the event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, migrationsDir()); err != nil {
			return err
		}
		fmt.Println("Database schema created.")

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		if err := queue.New(rdb).EnsureStream(ctx); err != nil {
			return err
		}
		fmt.Println("Event stream ready.")
		return nil
	},
}
