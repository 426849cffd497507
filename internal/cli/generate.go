package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/datagen"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var generateCmd = &cobra.Command{
	Use:   "generate <size-mb>",
	Short: "Generate a synthetic CSV file for load testing",
	Long: `Generate writes a CSV of approximately the given size with realistic
customer-order rows: timestamps, names, free text with embedded commas,
and numeric columns. Use it to exercise the import pipeline without
production data.

The output schema is fixed; create the target table to match the
21-column header the generator writes.

Examples:
  pgload generate 100
  pgload generate 500 -o big.csv --seed 42`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var generateFlags struct {
	output string
	seed   int64
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "",
		"Output filename (default: test_data_<SIZE>mb.csv)")
	generateCmd.Flags().Int64Var(&generateFlags.seed, "seed", 1,
		"Random seed; identical seeds produce identical files")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	sizeMB, err := strconv.Atoi(args[0])
	if err != nil || sizeMB < 1 {
		return fmt.Errorf("size must be a positive number of megabytes, got %q: %w",
			args[0], pgload.ErrInvalidConfig)
	}

	output := generateFlags.output
	if output == "" {
		output = fmt.Sprintf("test_data_%dmb.csv", sizeMB)
	}

	logger := logging.NewConsoleLogger(getVerboseFlag(cmd))
	gen := datagen.NewGenerator(generateFlags.seed, logger)
	_, err = gen.Generate(output, sizeMB)
	return err
}
