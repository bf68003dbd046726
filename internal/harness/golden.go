package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/canonical"
)

// Snapshot captures the connected state of a harness: pin counters and
// sides, cable terminations and the connection list.
func (h *Harness) Snapshot() map[string]any {
	connectors := make([]any, 0, len(h.connectorOrder))
	for _, c := range h.Connectors() {
		pins := make([]any, len(c.Pins))
		for i, p := range c.Pins {
			pins[i] = map[string]any{
				"id":          p.ID,
				"connections": p.NumConnections,
				"side":        string(p.Side),
			}
		}
		loops := make([]any, len(c.Loops))
		for i, l := range c.Loops {
			loops[i] = l.First + "-" + l.Second + ":" + string(l.Side)
		}
		connectors = append(connectors, map[string]any{
			"designator":  c.Designator,
			"ports_left":  c.PortsLeft,
			"ports_right": c.PortsRight,
			"pins":        pins,
			"loops":       loops,
		})
	}

	cables := make([]any, 0, len(h.cableOrder))
	for _, c := range h.Cables() {
		cables = append(cables, map[string]any{
			"designator":   c.Designator,
			"terminations": c.Terminations,
		})
	}

	conns := make([]any, len(h.Connections))
	for i, conn := range h.Connections {
		conns[i] = conn.String()
	}

	return map[string]any{
		"harness":     h.Name,
		"connectors":  connectors,
		"cables":      cables,
		"connections": conns,
	}
}

// AssertGoldenSnapshot compares the canonical JSON of h.Snapshot() with
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGoldenSnapshot(t *testing.T, name string, h *Harness) {
	t.Helper()

	data, err := canonical.Marshal(h.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	newGoldie(t).Assert(t, name, data)
}

// AssertGoldenBOM compares the TSV rendering of b with
// testdata/golden/{name}.golden.
func AssertGoldenBOM(t *testing.T, name string, b *bom.BOM, opts bom.RenderOptions) {
	t.Helper()

	var buf bytes.Buffer
	if err := b.Render(&buf, opts); err != nil {
		t.Fatalf("render bom: %v", err)
	}
	newGoldie(t).Assert(t, name, buf.Bytes())
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
