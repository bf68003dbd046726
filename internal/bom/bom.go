// Package bom aggregates harness components into a bill of materials.
//
// Each contribution is an Item. Items with the same fingerprint (description,
// category, unit, part numbers and quantity-multiplier kind) fold into one
// Entry whose quantity is the sum of its contributions. Entries also track
// the designators that contributed, in first-seen order, and the quantity
// contributed by each harness, so one BOM can be shared by several harness
// files processed in the same run.
package bom

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/filare/internal/canonical"
	"github.com/roach88/filare/internal/value"
)

// CategoryIgnore marks entries hidden by filtering.
const CategoryIgnore = "IGNORE"

// Header is the TSV header row.
var Header = []string{"#", "Qty", "Unit", "Description", "Designators", "PerHarness"}

// Item is one contribution to the BOM.
type Item struct {
	Description   string
	Category      string
	Qty           value.NumberAndUnit
	Designators   []string
	PartNumbers   value.PartNumberInfo
	QtyMultiplier string
}

// Fingerprint returns the content address of the BOM line item belongs to.
func Fingerprint(item Item) string {
	pns := make(map[string]any, len(value.PartNumberFields))
	for _, key := range value.PartNumberFields {
		pns[key] = item.PartNumbers.Get(key)
	}
	return canonical.MustFingerprint(canonical.DomainBOMEntry, map[string]any{
		"description":    item.Description,
		"category":       item.Category,
		"unit":           item.Qty.Unit,
		"partnumbers":    pns,
		"qty_multiplier": item.QtyMultiplier,
	})
}

// HarnessQty is the quantity one harness contributed to an entry.
type HarnessQty struct {
	Harness string
	Qty     value.NumberAndUnit
}

// Entry is one deduplicated BOM line.
type Entry struct {
	// ID is the 1-based insertion index. It is stable under filtering.
	ID            int
	Fingerprint   string
	Description   string
	Category      string
	Qty           value.NumberAndUnit
	Designators   []string
	PartNumbers   value.PartNumberInfo
	QtyMultiplier string
	PerHarness    []HarnessQty
}

// HarnessQty returns the quantity contributed by harness.
func (e *Entry) HarnessQty(harness string) (value.NumberAndUnit, bool) {
	for _, h := range e.PerHarness {
		if h.Harness == harness {
			return h.Qty, true
		}
	}
	return value.NumberAndUnit{}, false
}

// Row renders the entry as TSV cells in Header order.
func (e *Entry) Row() []string {
	per := make([]string, len(e.PerHarness))
	for i, h := range e.PerHarness {
		per[i] = h.Harness + ":" + h.Qty.NumberString()
	}
	return []string{
		fmt.Sprint(e.ID),
		e.Qty.NumberString(),
		e.Qty.Unit,
		e.Description,
		strings.Join(e.Designators, ", "),
		strings.Join(per, ","),
	}
}

// BOM is an ordered set of entries keyed by fingerprint.
//
// A BOM is not safe for concurrent use; builds that share one run one at
// a time.
type BOM struct {
	entries       []*Entry
	byFingerprint map[string]*Entry
}

// New creates an empty BOM.
func New() *BOM {
	return &BOM{byFingerprint: make(map[string]*Entry)}
}

// Fold adds item to the BOM on behalf of harness.
func (b *BOM) Fold(item Item, harness string) error {
	fp := Fingerprint(item)
	e, ok := b.byFingerprint[fp]
	if !ok {
		e = &Entry{
			ID:            len(b.entries) + 1,
			Fingerprint:   fp,
			Description:   item.Description,
			Category:      item.Category,
			Qty:           value.NumberAndUnit{Unit: item.Qty.Unit},
			PartNumbers:   item.PartNumbers,
			QtyMultiplier: item.QtyMultiplier,
		}
		b.entries = append(b.entries, e)
		b.byFingerprint[fp] = e
	}

	qty, err := e.Qty.Add(item.Qty)
	if err != nil {
		return fmt.Errorf("bom entry %d (%s): %w", e.ID, e.Description, err)
	}
	e.Qty = qty

	for _, d := range item.Designators {
		if d != "" && !slices.Contains(e.Designators, d) {
			e.Designators = append(e.Designators, d)
		}
	}

	for i, h := range e.PerHarness {
		if h.Harness == harness {
			sum, err := h.Qty.Add(item.Qty)
			if err != nil {
				return fmt.Errorf("bom entry %d (%s), harness %s: %w", e.ID, e.Description, harness, err)
			}
			e.PerHarness[i].Qty = sum
			return nil
		}
	}
	e.PerHarness = append(e.PerHarness, HarnessQty{Harness: harness, Qty: item.Qty})
	return nil
}

// Entries returns all entries in ID order.
func (b *BOM) Entries() []*Entry {
	return slices.Clone(b.entries)
}

// Len returns the number of entries.
func (b *BOM) Len() int {
	return len(b.entries)
}

// Filtered returns the entries that are neither IGNORE nor zero quantity.
func (b *BOM) Filtered() []*Entry {
	var out []*Entry
	for _, e := range b.entries {
		if e.Category == CategoryIgnore || e.Qty.IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RenderOptions controls Render.
type RenderOptions struct {
	// FilterEntries hides IGNORE and zero-quantity entries.
	FilterEntries bool
}

// Render writes the BOM as tab-separated values with Header as first row.
// Cells are written verbatim except that tabs and line breaks become spaces.
func (b *BOM) Render(w io.Writer, opts RenderOptions) error {
	entries := b.entries
	if opts.FilterEntries {
		entries = b.Filtered()
	}
	bw := bufio.NewWriter(w)
	writeRow(bw, Header)
	for _, e := range entries {
		writeRow(bw, e.Row())
	}
	return bw.Flush()
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\r", " ", "\n", " ")

func writeRow(w *bufio.Writer, row []string) {
	for i, cell := range row {
		if i > 0 {
			w.WriteByte('\t')
		}
		cellReplacer.WriteString(w, cell)
	}
	w.WriteByte('\n')
}

// String renders the unfiltered TSV.
func (b *BOM) String() string {
	var sb strings.Builder
	if err := b.Render(&sb, RenderOptions{}); err != nil {
		return err.Error()
	}
	return sb.String()
}
