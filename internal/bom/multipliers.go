package bom

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/filare/internal/errs"
)

// DefaultMultiplierFile is the multiplier file name used when none is given.
const DefaultMultiplierFile = "quantity_multipliers.txt"

// Multipliers maps harness names to positive integer quantity multipliers.
// The backing file is a JSON object.
type Multipliers struct {
	// Path is the absolute path of the backing file.
	Path   string
	values map[string]int
	dirty  bool
}

// LoadMultipliers reads the multiplier file at path. A missing file yields
// an empty set bound to path.
func LoadMultipliers(path string) (*Multipliers, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m := &Multipliers{Path: abs, values: make(map[string]int)}

	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, errs.Tooling(abs, "read quantity multipliers %s: %v", abs, err)
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Tooling(abs, "%s: Invalid format: expected a JSON object of harness name to positive integer: %v", abs, err)
	}
	for name, v := range raw {
		if v < 1 || v != math.Trunc(v) {
			return nil, errs.Tooling(abs, "%s: Invalid format: multiplier for %q must be a positive integer, got %v", abs, name, v)
		}
		m.values[name] = int(v)
	}
	return m, nil
}

// For returns the multiplier of harness.
func (m *Multipliers) For(harness string) (int, error) {
	n, ok := m.values[harness]
	if !ok {
		return 0, errs.Tooling(m.Path, "no quantity multiplier for harness %q in %s; add it to the file or rerun with --prompt", harness, m.Path)
	}
	return n, nil
}

// Set stores the multiplier of harness.
func (m *Multipliers) Set(harness string, n int) {
	if m.values[harness] != n {
		m.values[harness] = n
		m.dirty = true
	}
}

// Missing returns the names without a multiplier, in the given order.
func (m *Multipliers) Missing(names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := m.values[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Prompt asks on out for every name in names that has no multiplier and
// reads the answers from in, one per line. Invalid answers are asked again.
func (m *Multipliers) Prompt(names []string, in io.Reader, out io.Writer) error {
	missing := m.Missing(names)
	if len(missing) == 0 {
		return nil
	}
	sc := bufio.NewScanner(in)
	for _, name := range missing {
		for {
			fmt.Fprintf(out, "Quantity multiplier for %s: ", name)
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return errs.Tooling(m.Path, "read multiplier for %q: %v", name, err)
				}
				return errs.Tooling(m.Path, "no quantity multiplier given for harness %q", name)
			}
			n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
			if err != nil || n < 1 {
				fmt.Fprintln(out, "Please enter a positive integer.")
				continue
			}
			m.Set(name, n)
			break
		}
	}
	return nil
}

// Dirty reports whether Set changed anything since loading.
func (m *Multipliers) Dirty() bool {
	return m.dirty
}

// Save replaces the backing file with the current values. The file is
// written to a temporary name in the same directory and renamed over the
// target.
func (m *Multipliers) Save() error {
	data, err := json.MarshalIndent(m.values, "", "  ")
	if err != nil {
		return errs.Tooling(m.Path, "encode quantity multipliers: %v", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(m.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.Path)+".*")
	if err != nil {
		return errs.Tooling(m.Path, "save quantity multipliers: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Tooling(m.Path, "save quantity multipliers: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Tooling(m.Path, "save quantity multipliers: %v", err)
	}
	if err := os.Rename(tmpName, m.Path); err != nil {
		os.Remove(tmpName)
		return errs.Tooling(m.Path, "save quantity multipliers: %v", err)
	}
	m.dirty = false
	return nil
}
