package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaobservatory/omp/internal/sciprog"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a science program document without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := sciprog.ParseFile(args[0])
		if err != nil {
			return err
		}
		findings := p.Validate()
		if len(findings) == 0 {
			fmt.Printf("%s: OK (%d MSBs)\n", args[0], len(p.MSBs()))
			return nil
		}
		for _, f := range findings {
			fmt.Printf("  %s\n", f)
		}
		return fmt.Errorf("%d validation finding(s)", len(findings))
	},
}
