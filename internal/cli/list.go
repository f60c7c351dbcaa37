package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active memories",
		Run:   runList,
	}

	cmd.Flags().String("type", "", "Filter by fact type")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	typeFilter, _ := cmd.Flags().GetString("type")

	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	items, err := w.List(userFlag)
	if err != nil {
		exitErr("list", err)
	}

	if typeFilter != "" {
		filtered := items[:0]
		for _, item := range items {
			if string(item.Type) == typeFilter {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if formatFlag == "text" {
		for _, item := range items {
			fmt.Printf("%s  [%s] %s = %s (%.2f)\n", item.ID, item.Type, item.Key, item.Value, item.Confidence)
		}
		return
	}

	b, _ := json.MarshalIndent(items, "", "  ")
	fmt.Println(string(b))
}
