package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/splitter"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var splitCmd = &cobra.Command{
	Use:   "split <file.csv>",
	Short: "Split a CSV file into header-complete chunks",
	Long: `Split divides a large CSV into chunks no row is ever cut across.

Every chunk repeats the original header line, so each one is a valid CSV
file importable on its own in any order. Chunk files are named
<name>_chunk_0001.csv, <name>_chunk_0002.csv, and so on.

Examples:
  pgload split big.csv
  pgload split big.csv --chunk-size 250 --output-dir ./chunks`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

var splitFlags struct {
	chunkSizeMB int
	outputDir   string
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().IntVar(&splitFlags.chunkSizeMB, "chunk-size", pgload.DefaultChunkSizeMB,
		"Maximum chunk size in MB")
	splitCmd.Flags().StringVarP(&splitFlags.outputDir, "output-dir", "o", "",
		"Directory for chunk files (default: alongside the input file)")
}

func runSplit(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	path := args[0]
	outputDir := splitFlags.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(path)
	}

	chunks, err := splitter.New(logger).Split(path, splitFlags.chunkSizeMB, outputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s\n", successStyle.Render(
		fmt.Sprintf("Split %s into %d chunk(s):", filepath.Base(path), len(chunks))))
	for _, c := range chunks {
		fmt.Fprintf(os.Stderr, "  %s\n", c)
	}
	return nil
}
