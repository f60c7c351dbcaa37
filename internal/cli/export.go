package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the store document (stdout if no file given)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport,
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Merge a previously exported document, newer entries winning",
		Args:  cobra.ExactArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			exitErr("create file", err)
		}
		defer f.Close()
		out = f
	}

	if err := w.Export(out); err != nil {
		exitErr("export", err)
	}
}

func runImport(cmd *cobra.Command, args []string) {
	w, err := openWeave()
	if err != nil {
		exitErr("open", err)
	}
	defer w.Close()

	f, err := os.Open(args[0])
	if err != nil {
		exitErr("open file", err)
	}
	defer f.Close()

	n, err := w.Import(f)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Printf("imported %d memories\n", n)
}
