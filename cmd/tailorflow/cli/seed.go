package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tailorflow/tailorflow/internal/seed"
)

// SeedMode enumerates supported execution strategies.
type SeedMode string

const (
	// SeedModeDry parses the file and reports what would be written.
	SeedModeDry SeedMode = "dry"
	// SeedModeApply writes the file through the domain services.
	SeedModeApply SeedMode = "apply"
)

// SeedRunner writes a parsed seed file.
type SeedRunner interface {
	Run(ctx context.Context, f seed.File) (seed.Summary, error)
}

// SeedOptions configures the seed command execution.
type SeedOptions struct {
	Path       string
	Mode       SeedMode
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// SeedReport is the structured outcome of a seed run.
type SeedReport struct {
	Source  string       `json:"source"`
	Mode    SeedMode     `json:"mode"`
	Planned seed.Summary `json:"planned"`
	Written seed.Summary `json:"written"`
	Skipped bool         `json:"skipped"`
}

// SeedOpsCLI loads demo or fixture data.
type SeedOpsCLI struct {
	runner SeedRunner
}

// NewSeedOpsCLI constructs the helper. runner may be nil for dry runs.
func NewSeedOpsCLI(runner SeedRunner) *SeedOpsCLI {
	return &SeedOpsCLI{runner: runner}
}

// SeedCommand parses the seed file and, in apply mode, writes it. It returns
// the process exit code.
func (c *SeedOpsCLI) SeedCommand(ctx context.Context, opts SeedOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Mode == "" {
		opts.Mode = SeedModeDry
	}
	mode := SeedMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case SeedModeDry, SeedModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "seed: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}
	f, err := seed.Load(opts.Path)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "seed: %v\n", err)
		return 1
	}
	report := SeedReport{
		Source: opts.Path,
		Mode:   mode,
		Planned: seed.Summary{
			Users:     len(f.Users),
			Inventory: len(f.Inventory),
			Products:  len(f.Products),
			Orders:    len(f.Orders),
		},
	}
	if report.Source == "" {
		report.Source = "built-in"
	}
	if mode == SeedModeApply {
		if c.runner == nil {
			fmt.Fprintln(opts.Stderr, "seed: store not configured")
			return 1
		}
		written, err := c.runner.Run(ctx, f)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "seed: apply failed: %v\n", err)
			return 1
		}
		report.Written = written
		report.Skipped = written == (seed.Summary{})
	}
	if err := writeSeedOutput(opts, report); err != nil {
		fmt.Fprintf(opts.Stderr, "seed: %v\n", err)
		return 1
	}
	return 0
}

func writeSeedOutput(opts SeedOptions, report SeedReport) error {
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	p := report.Planned
	fmt.Fprintf(opts.Stdout, "source: %s (%s)\n", report.Source, report.Mode)
	fmt.Fprintf(opts.Stdout, "planned: %d users, %d inventory items, %d products, %d orders\n", p.Users, p.Inventory, p.Products, p.Orders)
	if report.Mode != SeedModeApply {
		return nil
	}
	if report.Skipped {
		_, err := fmt.Fprintln(opts.Stdout, "skipped: store already has accounts")
		return err
	}
	w := report.Written
	_, err := fmt.Fprintf(opts.Stdout, "written: %d users, %d inventory items, %d products, %d orders\n", w.Users, w.Inventory, w.Products, w.Orders)
	return err
}
