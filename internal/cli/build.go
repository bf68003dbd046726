package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/harness"
	"github.com/roach88/filare/internal/store"
)

// SharedBOMFile is the file name of the shared BOM in the output directory.
const SharedBOMFile = "shared_bom.tsv"

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	Prepend           []string
	Metadata          []string
	OutputDir         string
	SharedBOM         bool
	Filter            bool
	UseQtyMultipliers bool
	MultiplierFile    string
	Prompt            bool
	DB                string
	Record            bool

	now func() time.Time
}

// HarnessResult describes one written harness BOM.
type HarnessResult struct {
	Name    string `json:"name"`
	BOM     string `json:"bom"`
	Entries int    `json:"entries"`
}

// BuildResult is the payload of a successful build.
type BuildResult struct {
	Harnesses []HarnessResult `json:"harnesses"`
	SharedBOM string          `json:"shared_bom,omitempty"`
	BuildID   string          `json:"build_id,omitempty"`
}

func (r BuildResult) String() string {
	var b strings.Builder
	for i, h := range r.Harnesses {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "✓ %s -> %s (%d entries)", h.Name, h.BOM, h.Entries)
	}
	if r.SharedBOM != "" {
		fmt.Fprintf(&b, "\n✓ shared BOM -> %s", r.SharedBOM)
	}
	if r.BuildID != "" {
		fmt.Fprintf(&b, "\n✓ recorded build %s", r.BuildID)
	}
	return b.String()
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(rootOpts, &BuildOptions{now: time.Now})
}

func newBuildCommand(rootOpts *RootOptions, opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <file>...",
		Short: "Build harnesses and write their BOMs",
		Long: `Build one harness per input file and write <output_name>.bom.tsv for each.

Prepend files are concatenated in front of every input, so anchors
defined there can be referenced. Metadata files are merged under each
document's metadata.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Prepend, "prepend", "p", nil, "YAML file to prepend to each input (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.Metadata, "metadata", "m", nil, "YAML metadata file merged into each harness (repeatable)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", ".", "directory for generated files")
	cmd.Flags().BoolVar(&opts.SharedBOM, "shared-bom", false, "also write "+SharedBOMFile+" combining all harnesses")
	cmd.Flags().BoolVar(&opts.Filter, "filter", false, "drop IGNORE and zero-quantity entries from BOM files")
	cmd.Flags().BoolVar(&opts.UseQtyMultipliers, "use-qty-multipliers", false, "scale each harness by its entry in the multiplier file")
	cmd.Flags().StringVar(&opts.MultiplierFile, "multiplier-file", bom.DefaultMultiplierFile, "quantity multiplier file, relative to the output directory")
	cmd.Flags().BoolVar(&opts.Prompt, "prompt", false, "ask for missing quantity multipliers and save them")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the build in this SQLite database")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the build in the default history database")

	return cmd
}

func runBuild(rootOpts *RootOptions, opts *BuildOptions, inputs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := rootOpts.Logger()

	cfg := harness.Config{
		Prepend:       opts.Prepend,
		MetadataFiles: opts.Metadata,
		Logger:        logger,
	}
	if opts.SharedBOM {
		cfg.SharedBOM = bom.New()
	}
	if opts.UseQtyMultipliers {
		m, err := loadMultipliers(opts, inputs, cmd)
		if err != nil {
			return formatter.Fail("build failed", err)
		}
		cfg.Multipliers = m
	}

	harnesses, err := harness.BuildFromFiles(inputs, cfg)
	if err != nil {
		return formatter.Fail("build failed", err)
	}
	formatter.VerboseLog("Built %d harness(es)", len(harnesses))

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return formatter.Fail("build failed", fmt.Errorf("create output directory: %w", err))
	}

	render := bom.RenderOptions{FilterEntries: opts.Filter}
	result := BuildResult{Harnesses: make([]HarnessResult, 0, len(harnesses))}
	for _, h := range harnesses {
		b, err := h.BOM()
		if err != nil {
			return formatter.Fail("build failed", fmt.Errorf("%s: %w", h.Name, err))
		}
		path := filepath.Join(opts.OutputDir, h.OutputName()+".bom.tsv")
		if err := writeBOM(path, b, render); err != nil {
			return formatter.Fail("build failed", err)
		}
		formatter.VerboseLog("Wrote %s", path)
		result.Harnesses = append(result.Harnesses, HarnessResult{Name: h.Name, BOM: path, Entries: b.Len()})
	}

	if cfg.SharedBOM != nil {
		path := filepath.Join(opts.OutputDir, SharedBOMFile)
		if err := writeBOM(path, cfg.SharedBOM, render); err != nil {
			return formatter.Fail("build failed", err)
		}
		result.SharedBOM = path
	}

	if dbPath := opts.dbPath(); dbPath != "" {
		id, err := recordBuild(cmd, dbPath, opts.now(), inputs, harnesses, cfg.SharedBOM, logger)
		if err != nil {
			return formatter.Fail("record build failed", err)
		}
		result.BuildID = id
	}

	return formatter.Success(result)
}

// dbPath is --db, or the default history database with --record.
func (o *BuildOptions) dbPath() string {
	if o.DB != "" {
		return o.DB
	}
	if o.Record {
		return DefaultDBPath()
	}
	return ""
}

// loadMultipliers reads the multiplier file and, with --prompt, asks for
// the harnesses it lacks and saves the answers.
func loadMultipliers(opts *BuildOptions, inputs []string, cmd *cobra.Command) (*bom.Multipliers, error) {
	path := opts.MultiplierFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.OutputDir, path)
	}
	m, err := bom.LoadMultipliers(path)
	if err != nil {
		return nil, err
	}
	if !opts.Prompt {
		return m, nil
	}

	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = harness.HarnessName(in)
	}
	if err := m.Prompt(names, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	if m.Dirty() {
		if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create multiplier directory: %w", err)
		}
		if err := m.Save(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func writeBOM(path string, b *bom.BOM, opts bom.RenderOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	if err := b.Render(f, opts); err != nil {
		f.Close()
		return fmt.Errorf("write BOM %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write BOM %s: %w", path, err)
	}
	return nil
}

// recordBuild stores the build in the database at dbPath. The recorded
// BOM is the shared one when there is one, else all harnesses combined.
func recordBuild(cmd *cobra.Command, dbPath string, now time.Time, inputs []string, harnesses []*harness.Harness, shared *bom.BOM, logger *slog.Logger) (string, error) {
	combined := shared
	if combined == nil {
		combined = bom.New()
		for _, h := range harnesses {
			if err := h.PopulateBOM(combined); err != nil {
				return "", fmt.Errorf("%s: %w", h.Name, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", fmt.Errorf("create database directory: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	names := make([]string, len(harnesses))
	for i, h := range harnesses {
		names[i] = h.Name
	}
	rec := store.BuildRecord{
		ID:        store.NewBuildID(),
		CreatedAt: now,
		Harnesses: names,
		Inputs:    inputs,
	}
	if err := s.SaveBuild(cmd.Context(), rec, combined); err != nil {
		return "", err
	}
	logger.Debug("build recorded", "build_id", rec.ID, "db", dbPath, "entries", combined.Len())
	return rec.ID, nil
}
