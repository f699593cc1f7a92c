package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/digest"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigPath string
}

// ValidationResult describes a table that passed validation.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Observations int      `json:"observations"`
	Localities   int      `json:"localities"`
	Habitats     []string `json:"habitats"`
	Loci         []string `json:"loci"`
	DataDigest   string   `json:"data_digest"`
	ConfigDigest string   `json:"config_digest"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <table>",
		Short: "Check a table and config without fitting",
		Long: `Load a table and check its invariants: required columns present, every
response a finite non-negative number, each locality and locus pair at most
once, and one habitat per locality. The configuration is checked against
its schema. No models are fitted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "analysis config file (YAML)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid configuration", err)
	}
	loadOpts, err := cfg.LoadOptions()
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid configuration", err)
	}

	t, err := dataset.Load(path, loadOpts)
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid table", err)
	}
	formatter.VerboseLog("Loaded %d observations from %s", t.Len(), path)

	result := ValidationResult{
		Valid:        true,
		Observations: t.Len(),
		Localities:   t.Locality.Len(),
		Habitats:     t.Habitat.Levels,
		Loci:         t.Locus.Levels,
	}
	if result.DataDigest, err = digest.Dataset(t); err != nil {
		return formatter.Fail(ExitFailure, "digest table", err)
	}
	if result.ConfigDigest, err = digest.Config(cfg); err != nil {
		return formatter.Fail(ExitFailure, "digest config", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s is valid\n", path)
	fmt.Fprintf(w, "  %d observations, %d localities\n", result.Observations, result.Localities)
	fmt.Fprintf(w, "  habitats: %s\n", strings.Join(result.Habitats, ", "))
	fmt.Fprintf(w, "  loci: %s\n", strings.Join(result.Loci, ", "))
	_, err = fmt.Fprintf(w, "  digest: %s\n", result.DataDigest)
	return err
}
