// Package testutil provides deterministic helpers for tests: seeded
// document builders, a stepping clock and sequential build ids.
package testutil

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/filare/internal/loader"
)

var (
	connectorTypes = []string{"Molex KK 254", "JST PH", "Deutsch DT", "TE Superseal", "Dupont"}
	subtypes       = []string{"female", "male"}
	wireColors     = []string{"BK", "RD", "BU", "GN", "YE", "WH", "OG", "VT"}
	gauges         = []string{"0.25 mm2", "0.5 mm2", "0.75 mm2", "22 AWG"}
	lengths        = []string{"0.2 m", "0.5 m", "1 m", "1.5 m", "2 m"}
)

func buildID(n int) string {
	return fmt.Sprintf("build-%04d", n)
}

// Builder produces harness document fragments from a seeded source. The
// same seed always yields the same documents.
type Builder struct {
	rng *rand.Rand
}

// NewBuilder creates a builder for seed.
func NewBuilder(seed uint64) *Builder {
	return &Builder{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (b *Builder) pick(list []string) string {
	return list[b.rng.IntN(len(list))]
}

// Intn returns a number in [lo, hi].
func (b *Builder) Intn(lo, hi int) int {
	return lo + b.rng.IntN(hi-lo+1)
}

// Connector returns a connector declaration with pincount pins.
func (b *Builder) Connector(pincount int) *loader.Map {
	return loader.MapOf(
		"type", b.pick(connectorTypes),
		"subtype", b.pick(subtypes),
		"pincount", pincount,
	)
}

// Cable returns a cable declaration with wirecount colored wires.
func (b *Builder) Cable(wirecount int) *loader.Map {
	colors := make([]any, wirecount)
	for i := range colors {
		colors[i] = b.pick(wireColors)
	}
	return loader.MapOf(
		"gauge", b.pick(gauges),
		"length", b.pick(lengths),
		"colors", colors,
	)
}

// AdditionalItem returns an additional BOM item.
func (b *Builder) AdditionalItem(description string, qty int) *loader.Map {
	return loader.MapOf("description", description, "qty", qty)
}

// PointToPoint returns a document with connectors X1 and X2 of n pins, a
// cable W1 of n wires and one row joining pin k to wire k to pin k.
func (b *Builder) PointToPoint(n int) *loader.Map {
	pins := make([]any, n)
	for i := range pins {
		pins[i] = i + 1
	}
	row := []any{
		loader.MapOf("X1", pins),
		loader.MapOf("W1", pins),
		loader.MapOf("X2", pins),
	}
	return loader.MapOf(
		"connectors", loader.MapOf("X1", b.Connector(n), "X2", b.Connector(n)),
		"cables", loader.MapOf("W1", b.Cable(n)),
		"connections", []any{row},
	)
}

// Chain returns a document of hops+1 connectors X1..Xn joined by cables
// W1..Wn-1, each hop carrying a random subset of wires.
func (b *Builder) Chain(hops, pins int) *loader.Map {
	connectors := loader.NewMap()
	cables := loader.NewMap()
	var rows []any
	for i := 1; i <= hops+1; i++ {
		connectors.Set(fmt.Sprintf("X%d", i), b.Connector(pins))
	}
	for i := 1; i <= hops; i++ {
		w := fmt.Sprintf("W%d", i)
		cables.Set(w, b.Cable(pins))
		used := b.Intn(1, pins)
		sel := make([]any, used)
		for k := range sel {
			sel[k] = k + 1
		}
		rows = append(rows, []any{
			loader.MapOf(fmt.Sprintf("X%d", i), sel),
			loader.MapOf(w, sel),
			loader.MapOf(fmt.Sprintf("X%d", i+1), sel),
		})
	}
	return loader.MapOf(
		"connectors", connectors,
		"cables", cables,
		"connections", rows,
	)
}
