// Package cli implements the memoweave CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/memoweave/memoweave"
	"github.com/memoweave/memoweave/embedder"
	embedderopenai "github.com/memoweave/memoweave/embedder/openai"
	extractanthropic "github.com/memoweave/memoweave/extract/anthropic"
	"github.com/memoweave/memoweave/metrics"
)

var (
	dataDir    string
	userFlag   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memoweave",
	Short: "Long-term memory for conversational assistants",
	Long:  "Evaluates utterances for memorable facts, stores them in a JSON document, and retrieves them as prompt context.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Data directory (default: $MEMOWEAVE_DATA or ~/.memoweave)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "default", "User the operation applies to")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("MEMOWEAVE_DATA"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memoweave")
}

func metricsPath() string {
	return filepath.Join(getDataDir(), "metrics.ndjson")
}

// openWeave builds the façade. The local pattern extractor and mock embedder
// are used unless API keys are present in the environment.
func openWeave() (*memoweave.Memoweave, error) {
	return memoweave.New(func(o *memoweave.Options) {
		o.StorePath = filepath.Join(getDataDir(), "memories.json")
		o.Metrics = metrics.NewFileSink(metricsPath())

		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			o.Extractor = extractanthropic.New()
		}
		if os.Getenv("OPENAI_API_KEY") != "" {
			cached, err := embedder.NewCached(embedderopenai.New())
			if err == nil {
				o.Embedder = cached
			}
		}
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
