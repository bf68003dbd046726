package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/roach88/filare/internal/store"
)

// DefaultDBPath is the history database under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "filare", "builds.db")
}

// HistoryResult is the payload of the history command. Exactly one of
// Builds and Entry is set.
type HistoryResult struct {
	Builds []BuildSummary   `json:"builds,omitempty"`
	Entry  []store.EntryQty `json:"entry,omitempty"`
}

// BuildSummary is one line of the build listing.
type BuildSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Fingerprint string    `json:"fingerprint"`
	Harnesses   []string  `json:"harnesses"`
	Entries     int       `json:"entries"`
}

func (r HistoryResult) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	if r.Entry != nil {
		fmt.Fprintln(w, "BUILD\tCREATED\tQTY")
		for _, q := range r.Entry {
			fmt.Fprintf(w, "%s\t%s\t%s\n", q.BuildID, q.CreatedAt.Format(time.RFC3339), strings.TrimSpace(q.Qty+" "+q.Unit))
		}
	} else {
		fmt.Fprintln(w, "BUILD\tCREATED\tHARNESSES\tENTRIES\tFINGERPRINT")
		for _, s := range r.Builds {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ID, s.CreatedAt.Format(time.RFC3339), strings.Join(s.Harnesses, ","), s.Entries, shortFingerprint(s.Fingerprint))
		}
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath, entry string
	prune := -1

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds",
		Long: `List the builds recorded with build --db or --record, oldest first.

With --entry, show the total quantity of one BOM line (by fingerprint)
across every build that has it. With --prune N, delete all but the N
newest builds first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, dbPath, entry, prune, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default "+DefaultDBPath()+")")
	cmd.Flags().StringVar(&entry, "entry", "", "BOM entry fingerprint to trace")
	cmd.Flags().IntVar(&prune, "prune", -1, "keep only the N newest builds")

	return cmd
}

func runHistory(opts *RootOptions, dbPath, entry string, prune int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if dbPath == "" {
		dbPath = DefaultDBPath()
	}
	formatter.VerboseLog("Opening %s", dbPath)

	s, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail("history failed", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if prune >= 0 {
		n, err := s.Prune(ctx, prune)
		if err != nil {
			return formatter.Fail("history failed", err)
		}
		opts.Logger().Info("pruned build history", "deleted", n, "kept", prune)
		formatter.VerboseLog("Pruned %d build(s)", n)
	}
	if entry != "" {
		qtys, err := s.EntryHistory(ctx, entry)
		if err != nil {
			return formatter.Fail("history failed", err)
		}
		return formatter.Success(HistoryResult{Entry: qtys})
	}

	builds, err := s.ListBuilds(ctx)
	if err != nil {
		return formatter.Fail("history failed", err)
	}
	result := HistoryResult{Builds: make([]BuildSummary, 0, len(builds))}
	for _, b := range builds {
		result.Builds = append(result.Builds, BuildSummary{
			ID:          b.ID,
			CreatedAt:   b.CreatedAt,
			Fingerprint: b.Fingerprint,
			Harnesses:   b.Harnesses,
			Entries:     b.Entries,
		})
	}
	return formatter.Success(result)
}
