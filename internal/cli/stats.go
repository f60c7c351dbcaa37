package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memoweave/memoweave/metrics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the metrics stream into KPIs",
		Run:   runStats,
	}

	cmd.Flags().Int("top", 10, "Number of top keys to report")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")

	f, err := os.Open(metricsPath())
	if err != nil {
		exitErr("open metrics log", err)
	}
	defer f.Close()

	report, err := metrics.NewAggregator(top).Run(f)
	if err != nil {
		exitErr("aggregate", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
