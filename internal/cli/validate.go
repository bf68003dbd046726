package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filare/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Harnesses []string `json:"harnesses,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var prepend, metadata []string

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Build harnesses without writing output",
		Long: `Build every input like the build command does and report the first
error. Nothing is written. Faster than build for editing feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, prepend, metadata, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&prepend, "prepend", "p", nil, "YAML file to prepend to each input (repeatable)")
	cmd.Flags().StringSliceVarP(&metadata, "metadata", "m", nil, "YAML metadata file merged into each harness (repeatable)")

	return cmd
}

func runValidate(opts *RootOptions, inputs, prepend, metadata []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	harnesses, err := harness.BuildFromFiles(inputs, harness.Config{
		Prepend:       prepend,
		MetadataFiles: metadata,
		Logger:        opts.Logger(),
	})
	if err != nil {
		if formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		}
		return formatter.Fail("validation failed", err)
	}

	result := ValidationResult{Valid: true}
	for _, h := range harnesses {
		formatter.VerboseLog("Validated harness: %s", h.Name)
		result.Harnesses = append(result.Harnesses, h.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ All harnesses valid (%d)\n", len(harnesses))
	return nil
}
