package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Search pre-fetched backup MSBs for offline observing",
}

var backupDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the fetched backup dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		dates, err := backup.Dates(cfg.BackupDir)
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	},
}

var backupSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the next slot of backup MSBs matching band and instrument",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		at, _ := cmd.Flags().GetString("time")
		band, _ := cmd.Flags().GetInt("band")
		instrument, _ := cmd.Flags().GetString("instrument")
		if band == 0 {
			return fmt.Errorf("--band is required")
		}

		entries, slot, err := backup.Search(cfg.BackupDir, backup.Criteria{
			Date:       date,
			Time:       at,
			Band:       band,
			Instrument: instrument,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No backup MSBs match.")
			return nil
		}

		fmt.Printf("Slot %s:\n", slot)
		for _, e := range entries {
			fmt.Printf("  %-12s %-10s %-24s remaining %2d  %6.0fs\n",
				e.Project, e.Instrument, e.Title, e.Remaining, e.Elapsed)
			fmt.Printf("    %s\n", e.Path)
		}
		fmt.Println("\nNote: offline observing does not update remaining counters;")
		fmt.Println("track repeats by hand during an extended outage.")
		return nil
	},
}

func init() {
	backupSearchCmd.Flags().String("date", "", "UT date directory (YYYYMMDD); default most recent")
	backupSearchCmd.Flags().String("time", "", "earliest time of day (HHMM)")
	backupSearchCmd.Flags().Int("band", 0, "weather band number")
	backupSearchCmd.Flags().String("instrument", "", "instrument name")

	backupCmd.AddCommand(backupDatesCmd)
	backupCmd.AddCommand(backupSearchCmd)
}
