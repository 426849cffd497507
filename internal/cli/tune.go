package cli

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/internal/tuner"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Compute import settings for a database instance size",
	Long: `Tune derives pool bounds, worker counts, chunk and batch sizes, and
session memory settings from the database instance size, an
aggressiveness level, and this machine's resources.

The same profile is applied automatically when import runs with
--instance-size; tune exists to preview it or to write it into a
config file.

Levels:
  1 - Conservative: half throttle, safest on busy production instances
  2 - Balanced:     default, good for dedicated import windows
  3 - Aggressive:   full throttle, for instances serving nothing else

Examples:
  pgload tune --instance-size 6 --level 2
  pgload tune --interactive
  pgload tune --instance-size 8 --level 3 --write pgload.yaml`,
	RunE: runTune,
}

var tuneFlags struct {
	instanceSize int
	level        int
	interactive  bool
	writePath    string
}

func init() {
	rootCmd.AddCommand(tuneCmd)
	tuneCmd.Flags().IntVar(&tuneFlags.instanceSize, "instance-size", 0,
		fmt.Sprintf("Database instance size, %d (Nano) to %d (16XL)",
			tuner.MinInstanceSize, tuner.MaxInstanceSize))
	tuneCmd.Flags().IntVar(&tuneFlags.level, "level", int(tuner.LevelBalanced),
		"Tuning aggressiveness: 1=conservative, 2=balanced, 3=aggressive")
	tuneCmd.Flags().BoolVarP(&tuneFlags.interactive, "interactive", "i", false,
		"Prompt for instance size and level")
	tuneCmd.Flags().StringVar(&tuneFlags.writePath, "write", "",
		"Write the tuned settings as a pgload.yaml to this path")
}

func runTune(cmd *cobra.Command, args []string) error {
	instanceSize := tuneFlags.instanceSize
	level := tuneFlags.level

	if tuneFlags.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--interactive requires a terminal: %w", pgload.ErrInvalidConfig)
		}
		var err error
		instanceSize, level, err = promptTuneInputs()
		if err != nil {
			return err
		}
	}
	if instanceSize == 0 {
		return fmt.Errorf("--instance-size is required (or use --interactive): %w", pgload.ErrInvalidConfig)
	}

	local := tuner.DetectLocalSpecs()
	profile, err := tuner.Tune(instanceSize, tuner.Level(level), local)
	if err != nil {
		return err
	}

	printProfile(instanceSize, tuner.Level(level), local, profile)

	if tuneFlags.writePath != "" {
		if err := writeTunedConfig(tuneFlags.writePath, profile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s\n", successStyle.Render("Wrote "+tuneFlags.writePath))
	}
	return nil
}

// promptTuneInputs walks the user through the instance table and level
// choice on stderr, reading answers from stdin.
func promptTuneInputs() (instanceSize, level int, err error) {
	fmt.Fprintln(os.Stderr, titleStyle.Render("Database instance sizes"))
	sizes := make([]int, 0, len(tuner.InstanceSpecs))
	for size := range tuner.InstanceSpecs {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	for _, size := range sizes {
		spec := tuner.InstanceSpecs[size]
		fmt.Fprintf(os.Stderr, "  %2d. %-7s %6.1fGB RAM, %2d core(s), %s\n",
			size, spec.Name, spec.MemoryGB, spec.CPUCores, spec.Tier)
	}

	reader := bufio.NewReader(os.Stdin)
	instanceSize, err = promptInt(reader,
		fmt.Sprintf("Instance size [%d-%d]: ", tuner.MinInstanceSize, tuner.MaxInstanceSize))
	if err != nil {
		return 0, 0, err
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "  1. Conservative  2. Balanced  3. Aggressive")
	level, err = promptInt(reader, "Level [1-3] (default 2): ")
	if err != nil {
		return 0, 0, err
	}
	if level == 0 {
		level = int(tuner.LevelBalanced)
	}
	return instanceSize, level, nil
}

func promptInt(reader *bufio.Reader, prompt string) (int, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q: %w", line, pgload.ErrInvalidConfig)
	}
	return n, nil
}

func printProfile(instanceSize int, level tuner.Level, local tuner.LocalSpecs, p *pgload.TuningProfile) {
	spec := tuner.InstanceSpecs[instanceSize]

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, titleStyle.Render(
		fmt.Sprintf("Tuning profile: %s instance, %s level", spec.Name, level)))
	fmt.Fprintf(os.Stderr, "  %s %.1fGB RAM, %d core(s), %s tier\n",
		labelStyle.Render("Instance:       "), spec.MemoryGB, spec.CPUCores, spec.Tier)
	fmt.Fprintf(os.Stderr, "  %s %d core(s), %.1fGB available RAM\n",
		labelStyle.Render("Local machine:  "), local.CPUCores, local.AvailableMemoryGB)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  %s %d-%d\n", labelStyle.Render("Pool:           "), p.MinConnections, p.MaxConnections)
	fmt.Fprintf(os.Stderr, "  %s %d\n", labelStyle.Render("Workers:        "), p.ParallelWorkers)
	fmt.Fprintf(os.Stderr, "  %s %d MB\n", labelStyle.Render("Chunk size:     "), p.ChunkSizeMB)
	fmt.Fprintf(os.Stderr, "  %s %d rows\n", labelStyle.Render("Batch size:     "), p.BatchSize)
	fmt.Fprintf(os.Stderr, "  %s %d MB\n", labelStyle.Render("work_mem:       "), p.WorkMemMB)
	fmt.Fprintf(os.Stderr, "  %s %d MB\n", labelStyle.Render("maint_work_mem: "), p.MaintenanceWorkMemMB)
	fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("stmt timeout:   "), p.StatementTimeout)
	fmt.Fprintf(os.Stderr, "  %s triggers=%v vacuum=%v analyze=%v\n",
		labelStyle.Render("Maintenance:    "), !p.DisableTriggers, p.RunVacuum, p.RunAnalyze)

	if len(p.Recommendations) > 0 {
		fmt.Fprintln(os.Stderr)
		for _, rec := range p.Recommendations {
			fmt.Fprintf(os.Stderr, "  %s %s\n", warnStyle.Render("•"), rec)
		}
	}
}

// writeTunedConfig renders the profile as a pgload.yaml overlaying the
// defaults. Connection details are left for flags and environment.
func writeTunedConfig(path string, p *pgload.TuningProfile) error {
	cfg := config.Default().ApplyProfile(p)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
