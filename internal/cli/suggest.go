package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Work with pending suggestions",
		Run:   runSuggestList,
	}

	approveCmd := &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a pending suggestion and persist it",
		Args:  cobra.ExactArgs(1),
		Run:   runSuggestApprove,
	}

	rejectCmd := &cobra.Command{
		Use:   "reject [id]",
		Short: "Reject a pending suggestion",
		Args:  cobra.ExactArgs(1),
		Run:   runSuggestReject,
	}

	suggestCmd.AddCommand(approveCmd, rejectCmd)
	RootCmd.AddCommand(suggestCmd)
}

func runSuggestList(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	suggestions := w.Suggestions(userFlag)
	if formatFlag == "text" {
		for _, s := range suggestions {
			fmt.Printf("%s  %s = %s (score %.2f)\n", s.ID, s.Candidate.Key, s.Candidate.Value, s.Score)
		}
		return
	}
	b, _ := json.MarshalIndent(suggestions, "", "  ")
	fmt.Println(string(b))
}

func runSuggestApprove(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	item, err := w.ApproveSuggestion(cmd.Context(), userFlag, args[0])
	if err != nil {
		exitErr("approve", err)
	}
	fmt.Printf("saved %s = %s\n", item.Key, item.Value)
}

func runSuggestReject(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	if err := w.RejectSuggestion(userFlag, args[0]); err != nil {
		exitErr("reject", err)
	}
	fmt.Println("rejected")
}
