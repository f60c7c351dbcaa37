package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Retrieve relevant memories as prompt context",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().IntP("limit", "l", 5, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	result, err := w.RetrieveForPrompt(cmd.Context(), userFlag, query, limit)
	if err != nil {
		exitErr("recall", err)
	}

	if formatFlag == "text" {
		fmt.Println(result.Context)
		return
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
