package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired memories",
		Run:   runSweep,
	}

	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Compact old memory clusters into summaries",
		Run:   runSummarize,
	}

	RootCmd.AddCommand(sweepCmd, summarizeCmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	n, err := w.ExpireSweep()
	if err != nil {
		exitErr("sweep", err)
	}
	fmt.Printf("removed %d expired memories\n", n)
}

func runSummarize(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	report, err := w.Summarize(cmd.Context(), userFlag)
	if err != nil {
		exitErr("summarize", err)
	}

	if formatFlag == "text" {
		fmt.Printf("compacted %d clusters (%d memories into %d summaries)\n",
			report.Clusters, report.Archived, report.Created)
		return
	}
	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
