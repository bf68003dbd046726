package model

import (
	"fmt"
	"strings"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/value"
)

// ShieldID is the wire selector and id of a cable's shield.
const ShieldID = "s"

// Wire is one conductor of a cable, or its shield. Parent is the cable's
// designator.
type Wire struct {
	Parent      string
	Index       int
	ID          string
	Label       string
	Color       value.MultiColor
	Gauge       *value.NumberAndUnit
	Length      value.NumberAndUnit
	PartNumbers value.PartNumberInfo
	IsShield    bool
}

// Cable is a multi-conductor cable or a bundle of loose wires.
type Cable struct {
	Component

	Category      string
	Color         value.MultiColor
	Gauge         *value.NumberAndUnit
	Length        value.NumberAndUnit
	WireCount     int
	Colors        []value.MultiColor
	ColorCode     string
	WireLabels    []string
	ShowWireCount *bool

	// Shielded is true when shield is set; ShieldColor may be empty.
	Shielded    bool
	ShieldColor value.MultiColor

	// PerWirePartNumbers is true when any part-data field was given as a
	// list. PartNumbers then holds the fields shared by every wire.
	PerWirePartNumbers bool

	Wires  []*Wire
	Shield *Wire

	// Terminations counts wire ends attached to a pin.
	Terminations int
}

const bundleCategory = "bundle"

var cableKeys = []string{
	"category", "color", "gauge", "length", "wirecount", "colors", "color_code",
	"wirelabels", "shield", "show_wirecount",
	"pn", "manufacturer", "mpn", "supplier", "spn",
}

// CableFromMap validates and inflates a cable declaration. A nil map is an
// empty declaration.
func CableFromMap(designator string, m *loader.Map) (*Cable, error) {
	if m == nil {
		m = loader.NewMap()
	}
	f := fields{designator: designator, m: m}
	if err := f.checkKeys(componentKeys, cableKeys); err != nil {
		return nil, err
	}
	base, err := f.component()
	if err != nil {
		return nil, err
	}
	c := &Cable{Component: base}

	if c.Category, err = f.string("category"); err != nil {
		return nil, err
	}
	c.Category = strings.ToLower(c.Category)
	if c.Category != "" && c.Category != bundleCategory {
		return nil, errs.Component(designator, "category", "unknown category %q", c.Category)
	}
	if c.Color, err = value.ParseMultiColor(f.get("color"), designator); err != nil {
		return nil, err
	}
	if f.has("gauge") {
		g, err := value.ParseNumberWithDefaultUnit(f.get("gauge"), "mm2")
		if err != nil {
			return nil, errs.Component(designator, "gauge", "%v", err)
		}
		c.Gauge = &g
	}
	c.Length = value.NumberAndUnit{Unit: "m"}
	if f.has("length") {
		if c.Length, err = value.ParseNumberWithDefaultUnit(f.get("length"), "m"); err != nil {
			return nil, errs.Component(designator, "length", "%v", err)
		}
	}
	if c.ShowWireCount, err = f.optionalBool("show_wirecount"); err != nil {
		return nil, err
	}
	if err := c.parseShield(f.get("shield")); err != nil {
		return nil, err
	}
	if err := c.inflateWires(f); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cable) parseShield(v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		c.Shielded = val
		return nil
	case string:
		mc, err := value.ParseMultiColor(val, c.Designator)
		if err != nil {
			return err
		}
		c.Shielded = true
		c.ShieldColor = mc
		return nil
	}
	return errs.Component(c.Designator, "shield", "expected a boolean or a color, got %s", loader.TypeName(v))
}

func (c *Cable) inflateWires(f fields) error {
	colorStrings, err := f.stringList("colors")
	if err != nil {
		return err
	}
	colors := make([]value.MultiColor, len(colorStrings))
	for i, s := range colorStrings {
		if colors[i], err = value.ParseMultiColor(s, c.Designator); err != nil {
			return err
		}
	}
	if c.ColorCode, err = f.string("color_code"); err != nil {
		return err
	}
	if c.ColorCode != "" && len(colors) > 0 {
		return errs.Component(c.Designator, "color_code", "cannot be combined with colors")
	}
	if c.WireLabels, err = f.stringList("wirelabels"); err != nil {
		return err
	}

	wirecount, given, err := f.int("wirecount")
	if err != nil {
		return err
	}
	if !given {
		wirecount = max(len(colors), len(c.WireLabels))
	}
	if wirecount == 0 {
		return errs.Component(c.Designator, "wirecount", "cannot infer wirecount; give wirecount, colors or wirelabels")
	}
	c.WireCount = wirecount

	if c.ColorCode != "" {
		if colors, err = value.ColorsForCode(c.ColorCode, wirecount, c.Designator); err != nil {
			return err
		}
		c.ColorCode = strings.ToUpper(c.ColorCode)
	}
	if len(colors) > 0 {
		if colors, err = broadcast(c.Designator, "colors", colors, wirecount); err != nil {
			return err
		}
	}
	c.Colors = colors
	if n := len(c.WireLabels); n != 0 && n != wirecount {
		return errs.Component(c.Designator, "wirelabels", "has %d entries, wirecount is %d", n, wirecount)
	}

	wirePNs, err := c.partNumbers(f)
	if err != nil {
		return err
	}

	c.Wires = make([]*Wire, wirecount)
	for i := range wirecount {
		w := &Wire{
			Parent: c.Designator,
			Index:  i,
			ID:     fmt.Sprint(i + 1),
			Gauge:  c.Gauge,
			Length: c.Length,
		}
		if len(c.WireLabels) > 0 {
			w.Label = c.WireLabels[i]
		}
		if len(colors) > 0 {
			w.Color = colors[i]
		}
		if wirePNs != nil {
			w.PartNumbers = wirePNs[i]
		}
		c.Wires[i] = w
	}
	if c.Shielded {
		c.Shield = &Wire{
			Parent:   c.Designator,
			Index:    wirecount,
			ID:       ShieldID,
			Color:    c.ShieldColor,
			Length:   c.Length,
			IsShield: true,
		}
	}
	return nil
}

// partNumbers reads the part-data fields. Scalars apply to the cable.
// When any field is a list, every field is broadcast to wirecount and the
// per-wire values are returned.
func (c *Cable) partNumbers(f fields) ([]value.PartNumberInfo, error) {
	lists := make(map[string][]string)
	for _, key := range value.PartNumberFields {
		if _, ok := f.get(key).([]any); ok {
			c.PerWirePartNumbers = true
		}
	}
	if !c.PerWirePartNumbers {
		p, err := f.scalarPartNumbers()
		c.PartNumbers = p
		return nil, err
	}
	for _, key := range value.PartNumberFields {
		vals, err := f.stringList(key)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			continue
		}
		if lists[key], err = broadcast(c.Designator, key, vals, c.WireCount); err != nil {
			return nil, err
		}
	}
	out := make(value.PartNumberInfoList, c.WireCount)
	for i := range out {
		for key, vals := range lists {
			out[i] = out[i].With(key, vals[i])
		}
	}
	c.PartNumbers = out.KeepOnlyShared()
	return out, nil
}

// broadcast repeats a length-1 list to n entries. Any other length must be n.
func broadcast[T any](designator, field string, list []T, n int) ([]T, error) {
	switch len(list) {
	case n:
		return list, nil
	case 1:
		out := make([]T, n)
		for i := range out {
			out[i] = list[0]
		}
		return out, nil
	}
	return nil, errs.Component(designator, field, "has %d entries; expected 1 or wirecount (%d)", len(list), n)
}

// IsBundle reports whether the cable is a bundle of loose wires.
func (c *Cable) IsBundle() bool {
	return c.Category == bundleCategory
}

// WiresBySelector resolves a wire selector: a wire number, a wire label,
// or "s" for the shield.
func (c *Cable) WiresBySelector(sel string) []*Wire {
	if sel == ShieldID && c.Shield != nil {
		return []*Wire{c.Shield}
	}
	for _, w := range c.Wires {
		if w.ID == sel {
			return []*Wire{w}
		}
	}
	var out []*Wire
	for _, w := range c.Wires {
		if w.Label != "" && w.Label == sel {
			out = append(out, w)
		}
	}
	return out
}

// WireAt returns the wire at index, or the shield for index == WireCount.
func (c *Cable) WireAt(index int) *Wire {
	if index == c.WireCount {
		return c.Shield
	}
	if index < 0 || index > c.WireCount {
		return nil
	}
	return c.Wires[index]
}

// ToMap returns the normalized form.
func (c *Cable) ToMap() *loader.Map {
	m := loader.NewMap()
	c.Component.putMap(m)
	if c.PerWirePartNumbers {
		for _, key := range value.PartNumberFields {
			m.Delete(key)
			vals := make([]any, len(c.Wires))
			set := false
			for i, w := range c.Wires {
				vals[i] = w.PartNumbers.Get(key)
				set = set || w.PartNumbers.Get(key) != ""
			}
			if set {
				m.Set(key, vals)
			}
		}
	}
	putString(m, "category", c.Category)
	if len(c.Color) > 0 {
		m.Set("color", c.Color.String())
	}
	if c.Gauge != nil {
		m.Set("gauge", c.Gauge.String())
	}
	m.Set("length", c.Length.String())
	m.Set("wirecount", c.WireCount)
	if c.ColorCode != "" {
		m.Set("color_code", c.ColorCode)
	} else if len(c.Colors) > 0 {
		colors := make([]any, len(c.Colors))
		for i, mc := range c.Colors {
			colors[i] = mc.String()
		}
		m.Set("colors", colors)
	}
	if len(c.WireLabels) > 0 {
		labels := make([]any, len(c.WireLabels))
		for i, l := range c.WireLabels {
			labels[i] = l
		}
		m.Set("wirelabels", labels)
	}
	if c.Shielded {
		if len(c.ShieldColor) > 0 {
			m.Set("shield", c.ShieldColor.String())
		} else {
			m.Set("shield", true)
		}
	}
	if c.ShowWireCount != nil {
		m.Set("show_wirecount", *c.ShowWireCount)
	}
	return m
}

// Clone returns a copy with a new designator and fresh connection state.
func (c *Cable) Clone(designator string) *Cable {
	out := *c
	out.Designator = designator
	out.Terminations = 0
	out.Wires = make([]*Wire, len(c.Wires))
	for i, w := range c.Wires {
		nw := *w
		nw.Parent = designator
		out.Wires[i] = &nw
	}
	if c.Shield != nil {
		ns := *c.Shield
		ns.Parent = designator
		out.Shield = &ns
	}
	out.AdditionalComponents = make([]*AdditionalComponent, len(c.AdditionalComponents))
	for i, ac := range c.AdditionalComponents {
		nac := *ac
		out.AdditionalComponents[i] = &nac
	}
	return &out
}

// ResolveMultiplier implements MultiplierSource.
func (c *Cable) ResolveMultiplier(kind MultiplierKind) (value.NumberAndUnit, bool) {
	switch kind {
	case MultiplierWirecount:
		return value.NumberAndUnit{Number: float64(c.WireCount)}, true
	case MultiplierTermination:
		return value.NumberAndUnit{Number: float64(c.Terminations)}, true
	case MultiplierLength:
		return c.Length, true
	case MultiplierTotalLength:
		return c.Length.Scale(float64(c.WireCount)), true
	}
	return value.NumberAndUnit{}, false
}

// Describe returns the BOM description of the cable as a whole.
func (c *Cable) Describe() string {
	count := fmt.Sprintf("%d wires", c.WireCount)
	if c.WireCount == 1 {
		count = "1 wire"
	}
	if c.Gauge != nil {
		count = fmt.Sprintf("%d x %s", c.WireCount, c.Gauge)
	}
	shield := ""
	if c.Shielded {
		shield = "shielded"
	}
	return describe("Cable", c.Type, c.Subtype, count, shield, c.Color.FullNames())
}

// DescribeWire returns the BOM description of one wire of a bundle or of a
// cable with per-wire part numbers.
func (c *Cable) DescribeWire(w *Wire) string {
	gauge := ""
	if w.Gauge != nil {
		gauge = w.Gauge.String()
	}
	return describe("Wire", c.Type, c.Subtype, gauge, w.Color.FullNames())
}
