package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "evaluate [utterance]",
		Short: "Evaluate an utterance for memorable facts",
		Args:  cobra.MinimumNArgs(1),
		Run:   runEvaluate,
	}

	RootCmd.AddCommand(cmd)
}

func runEvaluate(cmd *cobra.Command, args []string) {
	utterance := strings.Join(args, " ")

	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	result, err := w.Evaluate(cmd.Context(), userFlag, utterance)
	if err != nil {
		exitErr("evaluate", err)
	}

	if formatFlag == "text" {
		for _, item := range result.Saved {
			fmt.Printf("saved   %s = %s\n", item.Key, item.Value)
		}
		for _, s := range result.Suggestions {
			fmt.Printf("suggest %s = %s (id %s, score %.2f)\n", s.Candidate.Key, s.Candidate.Value, s.ID, s.Score)
		}
		for _, tag := range result.Rejected {
			fmt.Printf("reject  %s\n", tag)
		}
		return
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
