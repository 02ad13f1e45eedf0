package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/cwbudde/hypersmac/internal/store"
	"github.com/spf13/cobra"
)

var (
	trialsDir  string
	trialsSeed int
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "Print the trial trace of a run",
	Long: `Reads <dir>/<seed>/trace.jsonl, where dir is <output_directory>/<name>
of the scenario, and prints one row per finished trial.`,
	RunE: runTrials,
}

func init() {
	trialsCmd.Flags().StringVar(&trialsDir, "dir", "", "Run directory (required)")
	trialsCmd.Flags().IntVar(&trialsSeed, "seed", 0, "Scenario seed of the run")

	trialsCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(trialsCmd)
}

func runTrials(cmd *cobra.Command, args []string) error {
	reader, err := store.NewTraceReader(trialsDir, strconv.Itoa(trialsSeed))
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No trials recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tCONFIG\tSEED\tBUDGET\tCOST\tSTATUS\tCONFIGURATION")
	for _, e := range entries {
		budget := "-"
		if e.Budget != nil {
			budget = strconv.FormatFloat(*e.Budget, 'g', 4, 64)
		}
		marker := ""
		if e.Incumbent {
			marker = " *"
		}
		fmt.Fprintf(w, "%d%s\t%d\t%d\t%s\t%.6f\t%s\t%v\n",
			e.Trial, marker, e.ConfigID, e.Seed, budget, e.Cost, e.Status, e.Config)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal trials: %d (* = new incumbent)\n", len(entries))
	return nil
}
