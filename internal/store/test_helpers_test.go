package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/value"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBOM builds a two-harness BOM with one shared entry.
func createTestBOM(t *testing.T) *bom.BOM {
	t.Helper()
	b := bom.New()
	items := []struct {
		item    bom.Item
		harness string
	}{
		{bom.Item{
			Description: "Connector, JST PH, 2 pins",
			Category:    "CONNECTOR",
			Qty:         value.NumberAndUnit{Number: 1},
			Designators: []string{"X1"},
			PartNumbers: value.PartNumberInfo{}.With("mpn", "PHR-2"),
		}, "H1"},
		{bom.Item{
			Description: "Connector, JST PH, 2 pins",
			Category:    "CONNECTOR",
			Qty:         value.NumberAndUnit{Number: 1},
			Designators: []string{"X1"},
			PartNumbers: value.PartNumberInfo{}.With("mpn", "PHR-2"),
		}, "H2"},
		{bom.Item{
			Description: "Cable, 2 x 0.25 mm2",
			Category:    "CABLE",
			Qty:         value.NumberAndUnit{Number: 0.5, Unit: "m"},
			Designators: []string{"W1"},
		}, "H1"},
		{bom.Item{
			Description:   "Sleeve",
			Category:      "ADDITIONAL",
			Qty:           value.NumberAndUnit{Number: 2},
			QtyMultiplier: "LENGTH",
		}, "H2"},
	}
	for _, it := range items {
		if err := b.Fold(it.item, it.harness); err != nil {
			t.Fatalf("Fold() failed: %v", err)
		}
	}
	return b
}
