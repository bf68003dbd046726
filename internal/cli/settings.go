package cli

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// typerPrefix marks variables passed through to the command-line layer.
const typerPrefix = "FIL_TYPER_"

// Settings is the environment configuration.
type Settings struct {
	// GraphvizEngine names the layout engine (WV_GRAPHVIZ_ENGINE). It is
	// carried for downstream renderers; the build itself does not use it.
	GraphvizEngine string `json:"graphviz_engine"`
	// Debug enables debug logging (WV_DEBUG).
	Debug bool `json:"debug"`
	// Typer holds every FIL_TYPER_* variable, keyed without the prefix.
	Typer map[string]string `json:"typer,omitempty"`
}

// LoadSettings reads Settings through lookup, normally os.LookupEnv.
func LoadSettings(lookup func(string) (string, bool), environ []string) Settings {
	s := Settings{GraphvizEngine: "dot"}
	if v, ok := lookup("WV_GRAPHVIZ_ENGINE"); ok && v != "" {
		s.GraphvizEngine = v
	}
	if v, ok := lookup("WV_DEBUG"); ok {
		s.Debug = parseBool(v)
	}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, typerPrefix) {
			continue
		}
		if s.Typer == nil {
			s.Typer = make(map[string]string)
		}
		s.Typer[strings.TrimPrefix(key, typerPrefix)] = val
	}
	return s
}

// EnvSettings reads Settings from the process environment.
func EnvSettings() Settings {
	return LoadSettings(os.LookupEnv, os.Environ())
}

// parseBool accepts strconv's forms plus "yes"/"on"; anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on", "y":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

func (s Settings) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graphviz_engine: %s\n", s.GraphvizEngine)
	fmt.Fprintf(&b, "debug: %t", s.Debug)
	keys := make([]string, 0, len(s.Typer))
	for k := range s.Typer {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s%s: %s", typerPrefix, k, s.Typer[k])
	}
	return b.String()
}

// NewSettingsCommand creates the settings command.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "settings",
		Short:         "Show settings read from the environment",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(rootOpts.settings())
		},
	}
}
