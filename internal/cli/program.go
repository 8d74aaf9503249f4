package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/sciprog"
	"github.com/eaobservatory/omp/internal/store"
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Science program storage",
}

var programImportCmd = &cobra.Command{
	Use:   "import <project> <file>",
	Short: "Validate and store a science program document for a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, path := args[0], args[1]

		p, err := sciprog.ParseFile(path)
		if err != nil {
			return err
		}
		if findings := p.Validate(); len(findings) > 0 {
			fmt.Fprintln(os.Stderr, "Program failed validation:")
			for _, f := range findings {
				fmt.Fprintf(os.Stderr, "  %s\n", f)
			}
			return fmt.Errorf("refusing to store invalid program")
		}

		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.New(pool, nil).SaveProgram(ctx, projectID, p); err != nil {
			return err
		}
		fmt.Printf("Stored program for %s: %d MSBs (%d active)\n",
			projectID, len(p.MSBs()), len(p.ActiveMSBs()))
		return nil
	},
}

var programExportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Print the stored science program document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		p, err := store.New(pool, nil).LoadProgram(ctx, args[0])
		if err != nil {
			return err
		}
		return p.Write(os.Stdout)
	},
}

var programSummaryCmd = &cobra.Command{
	Use:   "summary <project>",
	Short: "List the project's MSBs with checksums and remaining counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		p, err := store.New(pool, nil).LoadProgram(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Print(p.Summary())
		return nil
	},
}

func init() {
	programCmd.AddCommand(programImportCmd)
	programCmd.AddCommand(programExportCmd)
	programCmd.AddCommand(programSummaryCmd)
}
