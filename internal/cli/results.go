package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunsplit/sunsplit/internal/engine"
)

var resultsJSON bool

var resultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Show detailed results for an experiment",
	Long: `Show detailed results including conversion rates, confidence intervals,
p-values and recommendations. Mid-run results are provisional.`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "output the full result as JSON")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine) error {
		res, err := eng.GetResult(context.Background(), args[0])
		if err != nil {
			return err
		}

		if resultsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Printf("EXPERIMENT: %s\n", res.Name)
		fmt.Printf("STATUS: %s\n", res.Status)
		fmt.Printf("PARTICIPANTS: %d  CONVERSIONS: %d", res.TotalParticipants, res.TotalConversions)
		if res.DurationDays > 0 {
			fmt.Printf("  DURATION: %d days", res.DurationDays)
		}
		fmt.Println()
		fmt.Println()
		printResult(res)
		return nil
	})
}

// printResult renders the per-variant table, winner line and
// recommendations. Shared by results and stop.
func printResult(res *engine.Result) {
	fmt.Println("VARIANT           IMPRESSIONS  CONVERSIONS  RATE     CI               P-VALUE")
	fmt.Println(strings.Repeat("─", 78))

	for _, v := range res.Variants {
		indicator := ""
		if v.IsControl {
			indicator = " (control)"
		}
		if v.IsWinner && len(res.Variants) > 1 {
			indicator += " ← LEADING"
		}

		ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
		pStr := fmt.Sprintf("%.3f", v.PValue)
		if v.Impressions == 0 {
			ciStr = "N/A"
			pStr = "N/A"
		}
		if v.IsControl {
			pStr = "—"
		}

		name := v.Name
		if len(name) > 16 {
			name = name[:13] + "..."
		}

		fmt.Printf("%-16s  %-11d  %-11d  %-7s  %-15s  %s%s\n",
			name,
			v.Impressions,
			v.Conversions,
			formatPercent(v.Rate),
			ciStr,
			pStr,
			indicator,
		)
	}

	fmt.Println()

	if res.Winner != nil && len(res.Variants) > 1 {
		if res.Winner.IsSignificant {
			fmt.Printf("Winner: %q at %d%% confidence (+%.1f%% vs control)\n",
				res.Winner.Name, res.Winner.Confidence, res.Winner.ImprovementPct)
		} else {
			fmt.Printf("Leading: %q (not yet significant at %d%% confidence)\n",
				res.Winner.Name, res.Winner.Confidence)
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Recommendations:")
		for _, rec := range res.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
