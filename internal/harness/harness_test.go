package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/model"
	"github.com/roach88/filare/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parse(t *testing.T, text string) *loader.Map {
	t.Helper()
	doc, err := loader.ParseMergeYAML(text)
	require.NoError(t, err)
	return doc
}

func build(t *testing.T, name, text string) *Harness {
	t.Helper()
	h, err := Build(name, parse(t, text), Config{Logger: testLogger()})
	require.NoError(t, err)
	return h
}

func buildErr(t *testing.T, text string) error {
	t.Helper()
	h, err := Build("test", parse(t, text), Config{Logger: testLogger()})
	require.Error(t, err)
	assert.Nil(t, h)
	return err
}

const minimalDoc = `
connectors:
  X1: {pincount: 1}
  X2: {pincount: 1}
cables:
  C1: {wirecount: 1}
connections:
  - [{X1: 1}, {C1: 1}, {X2: 1}]
`

func TestBuild_MinimalHarness(t *testing.T) {
	h := build(t, "minimal", minimalDoc)

	require.Len(t, h.Connections, 1)
	conn := h.Connections[0]
	require.NotNil(t, conn.From)
	require.NotNil(t, conn.To)

	from := h.Connector(conn.From.Connector).Pins[conn.From.Index]
	assert.Equal(t, "1", from.ID)
	assert.Equal(t, "X1", from.Parent)
	assert.Equal(t, "C1", h.Cable(conn.Via.Cable).WireAt(conn.Via.Index).Parent)
	assert.Equal(t, "X2", h.Connector(conn.To.Connector).Pins[conn.To.Index].Parent)

	b, err := h.BOM()
	require.NoError(t, err)
	first, _, _ := strings.Cut(b.String(), "\n")
	assert.Equal(t, "#\tQty\tUnit\tDescription\tDesignators\tPerHarness", first)

	AssertGoldenSnapshot(t, "minimal_snapshot", h)
	AssertGoldenBOM(t, "minimal_bom", b, bom.RenderOptions{})
}

func TestBuild_DuplicateDesignator(t *testing.T) {
	t.Run("within connectors", func(t *testing.T) {
		_, err := loader.ParseMergeYAML("connectors:\n  X1: {}\n  X1: {}\n")
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrDuplicateDesignator)
		assert.Contains(t, err.Error(), "X1")
	})

	t.Run("across connectors and cables", func(t *testing.T) {
		err := buildErr(t, "connectors:\n  X1: {}\ncables:\n  X1: {}\n")
		assert.ErrorIs(t, err, errs.ErrDuplicateDesignator)
		assert.Contains(t, err.Error(), "X1")
	})
}

func TestBuild_MultipleSeparator(t *testing.T) {
	err := buildErr(t, `connections: [["A-B-C"]]`)

	assert.ErrorIs(t, err, errs.ErrMultipleSeparator)
	assert.Contains(t, err.Error(), "connections[0]")
	assert.Contains(t, err.Error(), "A-B-C")
}

func TestBuild_UnknownDesignator(t *testing.T) {
	err := buildErr(t, `
cables:
  W1: {wirecount: 1}
connections:
  - [{UNKNOWN: 1}, {W1: 1}]
`)

	assert.ErrorIs(t, err, errs.ErrUnknownTemplateDesignator)
	assert.Contains(t, err.Error(), "UNKNOWN")
	assert.Contains(t, err.Error(), "known cables: W1")
}

func TestBuild_SchemaViolation(t *testing.T) {
	err := buildErr(t, "wires: {}\n")
	assert.ErrorIs(t, err, errs.ErrSchemaViolation)

	err = buildErr(t, "connections: 3\n")
	assert.ErrorIs(t, err, errs.ErrSchemaViolation)
}

func TestBuild_SharedBOMAccumulates(t *testing.T) {
	doc := `
additional_bom_items:
  - {description: Test, qty: 2}
`
	shared := bom.New()
	for _, name := range []string{"H1", "H2"} {
		_, err := Build(name, parse(t, doc), Config{SharedBOM: shared, Logger: testLogger()})
		require.NoError(t, err)
	}

	entries := shared.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 4.0, entries[0].Qty.Number)
	h1, _ := entries[0].HarnessQty("H1")
	h2, _ := entries[0].HarnessQty("H2")
	assert.Equal(t, 2.0, h1.Number)
	assert.Equal(t, 2.0, h2.Number)

	tsv := shared.String()
	assert.Contains(t, tsv, "H1:2")
	assert.Contains(t, tsv, "H2:2")
	assert.Contains(t, tsv, "1\t4\t\tTest\t\tH1:2,H2:2\n")
}

func TestBuild_QtyMultiplierScalesContributions(t *testing.T) {
	shared := bom.New()
	_, err := Build("H1", parse(t, minimalDoc), Config{SharedBOM: shared, QtyMultiplier: 3, Logger: testLogger()})
	require.NoError(t, err)

	entries := shared.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "Connector, 1 pin", entries[0].Description)
	assert.Equal(t, 6.0, entries[0].Qty.Number)
}

func TestBuild_Templates(t *testing.T) {
	h := build(t, "templates", `
connectors:
  T: {type: Dupont, pincount: 2}
cables:
  W1: {wirecount: 2}
  W2: {wirecount: 2}
connections:
  - [{T-X5: [1, 2]}, {W1: [1, 2]}, {T-X6: [1, 2]}]
  - [{T-X6: [1, 2]}, {W2: [1, 2]}]
`)

	assert.Equal(t, []string{"X5", "X6"}, h.ConnectorNames())
	assert.Nil(t, h.Connector("T"))
	assert.Equal(t, "Dupont", h.Connector("X5").Type)
	assert.Equal(t, 2, h.Connector("X6").Pins[0].NumConnections)
}

func TestBuild_TemplateUsedDirectlyIsKept(t *testing.T) {
	h := build(t, "templates", `
connectors:
  T: {pincount: 1}
cables:
  W1: {wirecount: 2}
connections:
  - [[{T: 1}, {T-X2: 1}], {W1: [1, 2]}]
`)

	assert.Equal(t, []string{"T", "X2"}, h.ConnectorNames())
}

func TestBuild_PageOptionsSeparator(t *testing.T) {
	h := build(t, "sep", `
options: {template_separator: "-"}
page_options: {template_separator: "."}
connectors:
  T: {pincount: 1}
cables:
  W1: {wirecount: 1}
connections:
  - [{T.X-1: 1}, {W1: 1}]
`)

	assert.Equal(t, ".", h.Options.TemplateSeparator)
	assert.NotNil(t, h.Connector("X-1"))
}

func TestBuild_RangesUseTemplateSeparator(t *testing.T) {
	h := build(t, "dotted", `
options: {template_separator: "."}
connectors:
  X1: {pincount: 2}
  X2: {pincount: 2}
cables:
  W1: {wirecount: 2}
connections:
  - [{X1: "1.2"}, {W1: "1.2"}, {X2: "2.1"}]
`)

	require.Len(t, h.Connections, 2)

	err := buildErr(t, `
options: {template_separator: "."}
connectors:
  X1: {pincount: 3}
cables:
  W1: {wirecount: 3}
connections:
  - [{X1: "1-3"}, {W1: "1-3"}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1-3")
}

func TestBuild_Autogenerate(t *testing.T) {
	h := build(t, "splices", `
connectors:
  X1: {pincount: 2}
  S: {style: simple, type: Splice, autogenerate: true}
cables:
  W1: {wirecount: 2}
connections:
  - [{X1: [1, 2]}, {W1: [1, 2]}, S]
`)

	assert.Equal(t, []string{"X1", "_S_1", "_S_2"}, h.ConnectorNames())
	assert.Equal(t, "_S_1", h.Connections[0].To.Connector)
	assert.Equal(t, "_S_2", h.Connections[1].To.Connector)

	b, err := h.BOM()
	require.NoError(t, err)
	var splice *bom.Entry
	for _, e := range b.Entries() {
		if e.Description == "Connector, Splice" {
			splice = e
		}
	}
	require.NotNil(t, splice)
	assert.Equal(t, 2.0, splice.Qty.Number)
	assert.Empty(t, splice.Designators)
}

func TestBuild_Loops(t *testing.T) {
	t.Run("single active side", func(t *testing.T) {
		h := build(t, "loops", `
connectors:
  X1: {pincount: 4, loops: [[3, 4]]}
cables:
  W1: {wirecount: 1}
connections:
  - [{X1: 1}, {W1: 1}]
`)
		assert.Equal(t, model.SideRight, h.Connector("X1").Loops[0].Side)
	})

	t.Run("both sides prefer pin side", func(t *testing.T) {
		h := build(t, "loops", `
connectors:
  X0: {pincount: 1}
  X1: {pincount: 4, loops: [[1, 3], [4, 2], [3, 4]]}
  X2: {pincount: 1}
cables:
  W1: {wirecount: 1}
  W2: {wirecount: 1}
connections:
  - [{X0: 1}, {W1: 1}, {X1: 1}]
  - [{X1: 2}, {W2: 1}, {X2: 1}]
`)
		loops := h.Connector("X1").Loops
		assert.Equal(t, model.SideLeft, loops[0].Side)
		assert.Equal(t, model.SideRight, loops[1].Side)
		assert.Equal(t, model.SideLeft, loops[2].Side)
	})

	t.Run("no side", func(t *testing.T) {
		err := buildErr(t, `
connectors:
  X1: {pincount: 2, loops: [[1, 2]]}
`)
		assert.ErrorIs(t, err, errs.ErrUnsupportedLoopSide)
		assert.Contains(t, err.Error(), "X1")
		assert.Contains(t, err.Error(), "no side")
	})

	t.Run("explicit inactive side", func(t *testing.T) {
		err := buildErr(t, `
connectors:
  X1: {pincount: 2, loops: [{first: "1", second: "2", side: left}]}
cables:
  W1: {wirecount: 1}
connections:
  - [{X1: 1}, {W1: 1}]
`)
		assert.ErrorIs(t, err, errs.ErrUnsupportedLoopSide)
		assert.Contains(t, err.Error(), "no side")
	})
}

func TestBuild_QtyMultipliers(t *testing.T) {
	h := build(t, "multipliers", `
connectors:
  X1:
    pincount: 4
    additional_components:
      - {type: Crimp, qty_multiplier: populated, pn: CR-1}
      - {type: Seal, qty_multiplier: pincount}
cables:
  W1:
    wirecount: 2
    length: 2
    additional_components:
      - {type: Sleeve, qty_multiplier: length}
connections:
  - [{X1: [1, 2]}, {W1: [1, 2]}]
`)

	b, err := h.BOM()
	require.NoError(t, err)
	byDesc := make(map[string]*bom.Entry)
	for _, e := range b.Entries() {
		byDesc[e.Description] = e
	}

	require.Contains(t, byDesc, "Crimp")
	assert.Equal(t, "2", byDesc["Crimp"].Qty.String())
	assert.Equal(t, []string{"X1"}, byDesc["Crimp"].Designators)
	assert.Equal(t, "POPULATED", byDesc["Crimp"].QtyMultiplier)
	assert.Equal(t, "4", byDesc["Seal"].Qty.String())
	assert.Equal(t, "2 m", byDesc["Sleeve"].Qty.String())
	assert.Equal(t, "2 m", byDesc["Cable, 2 wires"].Qty.String())
}

func TestBuild_HarnessLevelSymbolicMultiplier(t *testing.T) {
	err := buildErr(t, `
additional_bom_items:
  - {description: Label, qty_multiplier: pincount}
`)

	assert.ErrorIs(t, err, errs.ErrComponentValidation)
	assert.Contains(t, err.Error(), "additional_bom_items[0]")
}

func TestBuild_IgnoreInBOM(t *testing.T) {
	h := build(t, "ignore", `
connectors:
  X1: {pincount: 2, ignore_in_bom: true}
  X2: {pincount: 2}
`)

	b, err := h.BOM()
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "IGNORE", b.Entries()[0].Category)

	filtered := b.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"X2"}, filtered[0].Designators)
	assert.Equal(t, 2, filtered[0].ID)
}

func TestBuild_BundleListsWires(t *testing.T) {
	h := build(t, "bundle", `
cables:
  B1: {category: bundle, colors: [RD, BK], gauge: 0.5 mm2, length: 0.3, type: FLRY}
`)

	b, err := h.BOM()
	require.NoError(t, err)
	var descs []string
	for _, e := range b.Entries() {
		descs = append(descs, e.Description)
		assert.Equal(t, "WIRE", e.Category)
		assert.Equal(t, "0.3 m", e.Qty.String())
	}
	assert.Equal(t, []string{"Wire, FLRY, 0.5 mm2, red", "Wire, FLRY, 0.5 mm2, black"}, descs)
}

func TestBuild_SummedLengthsRenderRounded(t *testing.T) {
	h := build(t, "H", `
cables:
  W1: {wirecount: 1, length: 0.1}
  W2: {wirecount: 1, length: 0.2}
`)

	b, err := h.BOM()
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
	assert.Contains(t, b.String(), "1\t0.3\tm\tCable, 1 wire\tW1, W2\tH:0.3\n")
}

func TestBuild_Metadata(t *testing.T) {
	dir := t.TempDir()
	metaFile := filepath.Join(dir, "meta.yml")
	require.NoError(t, os.WriteFile(metaFile, []byte("title: From file\ncompany: ACME\n"), 0o644))

	doc := parse(t, "metadata:\n  title: From doc\n  pn: DOC-1\n")
	h, err := Build("meta", doc, Config{
		MetadataFiles: []string{metaFile},
		ExtraMetadata: loader.MapOf("pn", "EXTRA-1"),
		Logger:        testLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, "From doc", h.Metadata.Title)
	assert.Equal(t, "ACME", h.Metadata.Company)
	assert.Equal(t, "EXTRA-1", h.Metadata.PN)
}

func TestBuild_NoMetadata(t *testing.T) {
	h := build(t, "empty", "")

	assert.Empty(t, h.Metadata.Title)
	require.Len(t, h.Metadata.Revisions, 1)
	assert.Equal(t, "A", h.Metadata.Revisions[0].Name)
	assert.Equal(t, "empty", h.OutputName())
}

func TestHarness_Connect(t *testing.T) {
	h := New("prog", nil)
	_, err := h.AddConnector("X1", loader.MapOf("pincount", 2, "pinlabels", []any{"GND", "VCC"}))
	require.NoError(t, err)
	_, err = h.AddConnector("X2", loader.MapOf("pincount", 2))
	require.NoError(t, err)
	_, err = h.AddCable("W1", loader.MapOf("wirecount", 2, "shield", true))
	require.NoError(t, err)

	require.NoError(t, h.Connect("X1", "VCC", "W1", "1", "X2", "2"))
	require.NoError(t, h.Connect("X1", "1", "W1", "s", "", ""))

	assert.Equal(t, 1, h.Connector("X1").Pins[1].NumConnections)
	assert.Equal(t, 1, h.Connector("X2").Pins[1].NumConnections)
	assert.Equal(t, 3, h.Cable("W1").Terminations)
	assert.True(t, h.Connections[1].Via.Shield)
	assert.Nil(t, h.Connections[1].To)

	err = h.Connect("X1", "9", "W1", "1", "X2", "1")
	assert.ErrorIs(t, err, errs.ErrComponentValidation)

	err = h.Connect("X1", "1", "W9", "1", "X2", "1")
	assert.ErrorIs(t, err, errs.ErrUnknownTemplateDesignator)

	_, err = h.AddCable("X1", nil)
	assert.ErrorIs(t, err, errs.ErrDuplicateDesignator)
}

func TestHarness_PopulateBOMIdempotent(t *testing.T) {
	h := build(t, "minimal", minimalDoc)

	b := bom.New()
	require.NoError(t, h.PopulateBOM(b))
	first := b.String()
	require.NoError(t, h.PopulateBOM(b))
	assert.Equal(t, first, b.String())

	own, err := h.BOM()
	require.NoError(t, err)
	again, err := h.BOM()
	require.NoError(t, err)
	assert.Same(t, own, again)
	assert.Equal(t, first, own.String())
}

type fakeMultipliers map[string]int

func (f fakeMultipliers) For(name string) (int, error) {
	n, ok := f[name]
	if !ok {
		return 0, errs.Tooling("multipliers", "no multiplier for %s", name)
	}
	return n, nil
}

func TestBuildFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
		return path
	}
	write("common.yml", `
connectors:
  X1: &twopin
    type: Molex KK 254
    pincount: 2
`)
	input := write("h1.yml", `
connectors:
  X2: *twopin
cables:
  W1: {wirecount: 2}
connections:
  - [{X1: [1, 2]}, {W1: [1, 2]}, {X2: [2, 1]}]
`)

	shared := bom.New()
	hs, err := BuildFromFiles([]string{input}, Config{
		Prepend:     []string{"common.yml"},
		SharedBOM:   shared,
		Multipliers: fakeMultipliers{"h1": 3},
		Logger:      testLogger(),
	})
	require.NoError(t, err)
	require.Len(t, hs, 1)

	h := hs[0]
	assert.Equal(t, "h1", h.Name)
	assert.Equal(t, 3, h.QtyMultiplier)
	assert.Equal(t, []string{"X1", "X2"}, h.ConnectorNames())
	assert.Equal(t, 1, h.Connections[0].To.Index)

	entry := shared.Entries()[0]
	assert.Equal(t, "Connector, Molex KK 254, 2 pins", entry.Description)
	assert.Equal(t, "6", entry.Qty.String())
	assert.Contains(t, entry.Row(), "h1:6")
}

func TestBuildFromFiles_Errors(t *testing.T) {
	_, err := BuildFromFiles([]string{"does-not-exist.yml"}, Config{Logger: testLogger()})
	assert.ErrorIs(t, err, errs.ErrFileResolution)

	dir := t.TempDir()
	input := filepath.Join(dir, "h2.yml")
	require.NoError(t, os.WriteFile(input, []byte("connectors: {X1: {}}\n"), 0o644))
	_, err = BuildFromFiles([]string{input}, Config{Multipliers: fakeMultipliers{}, Logger: testLogger()})
	assert.ErrorIs(t, err, errs.ErrTooling)
}

func TestHarnessName(t *testing.T) {
	assert.Equal(t, "demo", HarnessName("/tmp/x/demo.yml"))
	assert.Equal(t, "demo.v2", HarnessName("demo.v2.yaml"))
}

// Generated documents must satisfy the structural invariants of a built
// harness.
func TestBuild_Invariants(t *testing.T) {
	shared := bom.New()
	for seed := uint64(1); seed <= 25; seed++ {
		b := testutil.NewBuilder(seed)
		doc := b.Chain(b.Intn(1, 4), b.Intn(1, 6))
		name := fmt.Sprintf("chain-%d", seed)

		h, err := Build(name, doc, Config{SharedBOM: shared, Logger: testLogger()})
		require.NoError(t, err, "seed %d", seed)

		// designator uniqueness
		seen := make(map[string]bool)
		for _, d := range append(h.ConnectorNames(), h.CableNames()...) {
			assert.False(t, seen[d], "seed %d: duplicate %s", seed, d)
			seen[d] = true
		}

		// pin and wire list lengths
		for _, c := range h.Connectors() {
			assert.Len(t, c.Pins, c.PinCount)
		}
		for _, c := range h.Cables() {
			assert.Len(t, c.Wires, c.WireCount)
		}

		// closure and per-pin counters
		counts := make(map[model.PinRef]int)
		for _, conn := range h.Connections {
			cable := h.Cable(conn.Via.Cable)
			require.NotNil(t, cable)
			require.NotNil(t, cable.WireAt(conn.Via.Index))
			for _, ref := range []*model.PinRef{conn.From, conn.To} {
				if ref == nil {
					continue
				}
				c := h.Connector(ref.Connector)
				require.NotNil(t, c)
				require.Less(t, ref.Index, len(c.Pins))
				counts[*ref]++
			}
		}
		for _, c := range h.Connectors() {
			for _, p := range c.Pins {
				assert.Equal(t, counts[model.PinRef{Connector: c.Designator, Index: p.Index}], p.NumConnections,
					"seed %d: %s pin %s", seed, c.Designator, p.ID)
			}
		}

		// idempotence
		own, err := h.BOM()
		require.NoError(t, err)
		fresh := bom.New()
		require.NoError(t, h.PopulateBOM(fresh))
		require.NoError(t, h.PopulateBOM(fresh))
		assert.Equal(t, own.String(), fresh.String())
	}

	// BOM arithmetic
	for _, e := range shared.Entries() {
		sum := 0.0
		for _, ph := range e.PerHarness {
			sum += ph.Qty.Number
		}
		assert.InDelta(t, e.Qty.Number, sum, 1e-9, "entry %d", e.ID)
	}
}

func TestBuild_ErrorsAreTyped(t *testing.T) {
	err := buildErr(t, `
cables:
  W1: {wirecount: 2, wirelabels: [A]}
`)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.KindComponentValidation, e.Kind)
	assert.Equal(t, "W1", e.Designator)
}
