package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/analyzer"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>...",
	Short: "Inspect CSV files without importing",
	Long: `Analyze reports size, encoding, row count, columns, and the number
of chunks the splitter would produce, without touching the database.

Row counts are exact for files up to 100MB and sample-based estimates
above that; estimated counts are marked with a tilde.

Examples:
  pgload analyze data.csv
  pgload analyze data.csv --chunk-size 250
  pgload analyze *.csv -v`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var analyzeFlags struct {
	chunkSizeMB int
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().IntVar(&analyzeFlags.chunkSizeMB, "chunk-size", pgload.DefaultChunkSizeMB,
		"Chunk size in MB used for the chunk estimate")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)
	an := analyzer.New(logger)

	for _, path := range args {
		analysis, err := an.Analyze(path, analyzeFlags.chunkSizeMB)
		if err != nil {
			return err
		}
		printAnalysis(analysis, verbose)
	}
	return nil
}

func printAnalysis(a *pgload.FileAnalysis, verbose bool) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, titleStyle.Render(a.Path))

	rows := fmt.Sprintf("%d", a.RowCount)
	if a.Estimated {
		rows = "~" + rows
	}
	fmt.Fprintf(os.Stderr, "  %s %.2f MB\n", labelStyle.Render("Size:    "), a.SizeMB)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("Encoding:"), a.Encoding)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("Rows:    "), rows)
	fmt.Fprintf(os.Stderr, "  %s %d\n", labelStyle.Render("Columns: "), a.ColumnCount)
	fmt.Fprintf(os.Stderr, "  %s %d\n", labelStyle.Render("Chunks:  "), a.EstimatedChunks)

	if verbose {
		fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("Header:  "), strings.Join(a.Columns, ", "))
		for i, row := range a.SampleRows {
			fmt.Fprintf(os.Stderr, "  %s %s\n",
				labelStyle.Render(fmt.Sprintf("Row %d:   ", i+1)), strings.Join(row, ", "))
		}
	}
}
