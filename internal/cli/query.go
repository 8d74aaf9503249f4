package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/siteq"
	"github.com/eaobservatory/omp/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List MSBs observable under the current conditions",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		if project == "" {
			return fmt.Errorf("--project is required")
		}
		tau, _ := cmd.Flags().GetFloat64("tau")
		seeing, _ := cmd.Flags().GetFloat64("seeing")
		cloud, _ := cmd.Flags().GetFloat64("cloud")
		band, _ := cmd.Flags().GetInt("band")

		cond := siteq.Conditions{Tau: tau, Seeing: seeing, Cloud: cloud}
		bands, err := siteq.LoadBands(cfg.BandsFile)
		if err != nil {
			return err
		}
		if band > 0 {
			// A band implies representative conditions; explicit --tau
			// wins when both are given.
			bc, err := siteq.BandConditions(bands, band)
			if err != nil {
				return err
			}
			if tau == 0 {
				cond.Tau = bc.Tau
			}
		}

		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		p, err := store.New(pool, nil).LoadProgram(ctx, project)
		if err != nil {
			return err
		}

		matches := siteq.QueryProgram(p, cond)
		fmt.Printf("Conditions: tau=%.3f (band %d) seeing=%.1f cloud=%.2f\n",
			cond.Tau, siteq.BandFromTau(bands, cond.Tau).Number, cond.Seeing, cond.Cloud)
		if len(matches) == 0 {
			fmt.Println("No observable MSBs.")
			return nil
		}
		for _, m := range matches {
			var elapsed float64
			for _, o := range m.Obs {
				elapsed += o.Elapsed
			}
			fmt.Printf("  %-36s %-24s remaining %2d  %6.0fs\n",
				m.Checksum, m.Title, m.Remaining, elapsed)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().String("project", "", "project ID")
	queryCmd.Flags().Float64("tau", 0, "current 225 GHz zenith opacity")
	queryCmd.Flags().Float64("seeing", 0, "current seeing in arcsec")
	queryCmd.Flags().Float64("cloud", 0, "current cloud fraction")
	queryCmd.Flags().Int("band", 0, "weather band (used when --tau is not given)")
}
