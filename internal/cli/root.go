package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eaobservatory/omp/internal/config"
	"github.com/eaobservatory/omp/internal/db"
	"github.com/eaobservatory/omp/internal/queue"
)

var (
	cfg     *config.Config
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "omp",
		Short: "OMP: science program bookkeeping for observatory scheduling",
		Long: `omp manages stored science programs: accepting, undoing and completing
MSBs (minimum schedulable blocks), querying what is observable under the
current weather, and keeping the done-log and per-night time accounting.

Typical observing flow:
  omp query --project M23BU042 --tau 0.07
  omp msb accept --project M23BU042 --checksum <sum>
  omp msb undo --project M23BU042 --checksum <sum>   (if the night went wrong)`,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(programCmd)
	rootCmd.AddCommand(msbCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(acctCmd)
	rootCmd.AddCommand(queueCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet OMP_DATABASE_URL environment variable", err)
	}
	return pool, nil
}

func connectRedis() (*redis.Client, error) {
	rdb, err := queue.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet OMP_REDIS_URL environment variable", err)
	}
	return rdb, nil
}

func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func migrationsDir() string {
	return filepath.Join(cfg.ProjectRoot, "migrations")
}
