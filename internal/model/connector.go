package model

import (
	"fmt"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/value"
)

// Pin is one contact of a connector. Parent is the connector's designator.
type Pin struct {
	Index  int
	ID     string
	Label  string
	Color  value.MultiColor
	Parent string

	// NumConnections counts the connections ending on this pin.
	NumConnections int
	// Side is set when a connection attaches to the pin.
	Side Side
}

// Loop joins two pins of the same connector.
type Loop struct {
	First  string
	Second string
	Side   Side
}

// Connector is a plug, socket, splice or ferrule.
type Connector struct {
	Component

	Style                string
	Color                value.MultiColor
	PinCount             int
	Pins                 []*Pin
	PinLabels            []string
	PinColors            []value.MultiColor
	Loops                []*Loop
	ShowPinCount         *bool
	HideDisconnectedPins bool
	Autogenerate         bool

	// PortsLeft and PortsRight record which sides have connections.
	PortsLeft  bool
	PortsRight bool
}

var connectorKeys = []string{
	"style", "color", "pincount", "pins", "pinlabels", "pincolors", "loops",
	"show_pincount", "hide_disconnected_pins", "autogenerate",
	"pn", "manufacturer", "mpn", "supplier", "spn",
}

// ConnectorFromMap validates and inflates a connector declaration. A nil
// map is an empty declaration.
func ConnectorFromMap(designator string, m *loader.Map) (*Connector, error) {
	if m == nil {
		m = loader.NewMap()
	}
	f := fields{designator: designator, m: m}
	if err := f.checkKeys(componentKeys, connectorKeys); err != nil {
		return nil, err
	}
	base, err := f.component()
	if err != nil {
		return nil, err
	}
	c := &Connector{Component: base}
	if c.PartNumbers, err = f.scalarPartNumbers(); err != nil {
		return nil, err
	}
	if c.Style, err = f.string("style"); err != nil {
		return nil, err
	}
	if c.Style != "" && c.Style != "simple" {
		return nil, errs.Component(designator, "style", "unknown style %q", c.Style)
	}
	if c.Color, err = value.ParseMultiColor(f.get("color"), designator); err != nil {
		return nil, err
	}
	if c.ShowPinCount, err = f.optionalBool("show_pincount"); err != nil {
		return nil, err
	}
	if c.HideDisconnectedPins, err = f.bool("hide_disconnected_pins"); err != nil {
		return nil, err
	}
	if c.Autogenerate, err = f.bool("autogenerate"); err != nil {
		return nil, err
	}

	if err := c.inflatePins(f); err != nil {
		return nil, err
	}
	if c.Loops, err = c.parseLoops(f.get("loops")); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connector) inflatePins(f fields) error {
	pinIDs, err := f.stringList("pins")
	if err != nil {
		return err
	}
	if c.PinLabels, err = f.stringList("pinlabels"); err != nil {
		return err
	}
	colorStrings, err := f.stringList("pincolors")
	if err != nil {
		return err
	}
	for _, s := range colorStrings {
		mc, err := value.ParseMultiColor(s, c.Designator)
		if err != nil {
			return err
		}
		c.PinColors = append(c.PinColors, mc)
	}

	pincount, given, err := f.int("pincount")
	if err != nil {
		return err
	}
	if !given {
		pincount = max(len(pinIDs), len(c.PinLabels), len(c.PinColors))
		if pincount == 0 {
			if c.Style != "simple" {
				return errs.Component(c.Designator, "pincount", "cannot infer pincount; give pincount, pins, pinlabels or pincolors")
			}
			pincount = 1
		}
	}
	if pincount == 0 {
		return errs.Component(c.Designator, "pincount", "must be at least 1")
	}
	c.PinCount = pincount

	if pinIDs == nil {
		pinIDs = make([]string, pincount)
		for i := range pinIDs {
			pinIDs[i] = fmt.Sprint(i + 1)
		}
	}
	if len(pinIDs) != pincount {
		return errs.Component(c.Designator, "pins", "has %d entries, pincount is %d", len(pinIDs), pincount)
	}
	if n := len(c.PinLabels); n != 0 && n != pincount {
		return errs.Component(c.Designator, "pinlabels", "has %d entries, pincount is %d", n, pincount)
	}
	if n := len(c.PinColors); n != 0 && n != pincount {
		return errs.Component(c.Designator, "pincolors", "has %d entries, pincount is %d", n, pincount)
	}

	seen := make(map[string]bool, pincount)
	c.Pins = make([]*Pin, pincount)
	for i, id := range pinIDs {
		if seen[id] {
			return errs.Component(c.Designator, "pins", "pin %q is listed more than once", id)
		}
		seen[id] = true
		p := &Pin{Index: i, ID: id, Parent: c.Designator}
		if len(c.PinLabels) > 0 {
			p.Label = c.PinLabels[i]
		}
		if len(c.PinColors) > 0 {
			p.Color = c.PinColors[i]
		}
		c.Pins[i] = p
	}
	return nil
}

func (c *Connector) parseLoops(v any) ([]*Loop, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errs.Component(c.Designator, "loops", "expected a list, got %s", loader.TypeName(v))
	}
	loops := make([]*Loop, 0, len(list))
	for i, item := range list {
		var ids []string
		side := SideNone
		switch val := item.(type) {
		case []any:
			for _, id := range val {
				ids = append(ids, loader.ScalarString(id))
			}
		case *loader.Map:
			lf := fields{designator: c.Designator, m: val}
			if err := lf.checkKeys([]string{"first", "second", "side"}); err != nil {
				return nil, err
			}
			first, err := lf.string("first")
			if err != nil {
				return nil, err
			}
			second, err := lf.string("second")
			if err != nil {
				return nil, err
			}
			ids = []string{first, second}
			s, err := lf.string("side")
			if err != nil {
				return nil, err
			}
			parsed, ok := ParseSide(s)
			if !ok {
				return nil, errs.Component(c.Designator, "loops", "loop %d: unknown side %q", i, s)
			}
			side = parsed
		default:
			return nil, errs.Component(c.Designator, "loops", "loop %d: expected a pair of pins, got %s", i, loader.TypeName(item))
		}
		if len(ids) != 2 {
			return nil, errs.Component(c.Designator, "loops", "loop %d: expected 2 pins, got %d", i, len(ids))
		}
		if ids[0] == ids[1] {
			return nil, errs.Component(c.Designator, "loops", "loop %d: pin %q cannot loop to itself", i, ids[0])
		}
		for _, id := range ids {
			if c.PinByID(id) == nil {
				return nil, errs.Component(c.Designator, "loops", "loop %d: unknown pin %q", i, id)
			}
		}
		loops = append(loops, &Loop{First: ids[0], Second: ids[1], Side: side})
	}
	return loops, nil
}

// PinByID returns the pin with the given id, or nil.
func (c *Connector) PinByID(id string) *Pin {
	for _, p := range c.Pins {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PinsBySelector resolves a selector to pins: a pin id first, then a
// pin label. Labels may match several pins.
func (c *Connector) PinsBySelector(sel string) []*Pin {
	if p := c.PinByID(sel); p != nil {
		return []*Pin{p}
	}
	var out []*Pin
	for _, p := range c.Pins {
		if p.Label != "" && p.Label == sel {
			out = append(out, p)
		}
	}
	return out
}

// ToMap returns the normalized form.
func (c *Connector) ToMap() *loader.Map {
	m := loader.NewMap()
	c.Component.putMap(m)
	putString(m, "style", c.Style)
	if len(c.Color) > 0 {
		m.Set("color", c.Color.String())
	}
	m.Set("pincount", c.PinCount)
	pins := make([]any, len(c.Pins))
	for i, p := range c.Pins {
		pins[i] = p.ID
	}
	m.Set("pins", pins)
	if len(c.PinLabels) > 0 {
		labels := make([]any, len(c.PinLabels))
		for i, l := range c.PinLabels {
			labels[i] = l
		}
		m.Set("pinlabels", labels)
	}
	if len(c.PinColors) > 0 {
		colors := make([]any, len(c.PinColors))
		for i, pc := range c.PinColors {
			colors[i] = pc.String()
		}
		m.Set("pincolors", colors)
	}
	if len(c.Loops) > 0 {
		loops := make([]any, len(c.Loops))
		for i, l := range c.Loops {
			lm := loader.MapOf("first", l.First, "second", l.Second)
			if l.Side != SideNone {
				lm.Set("side", string(l.Side))
			}
			loops[i] = lm
		}
		m.Set("loops", loops)
	}
	if c.ShowPinCount != nil {
		m.Set("show_pincount", *c.ShowPinCount)
	}
	if c.HideDisconnectedPins {
		m.Set("hide_disconnected_pins", true)
	}
	if c.Autogenerate {
		m.Set("autogenerate", true)
	}
	return m
}

// Clone returns a copy with a new designator and fresh connection state.
func (c *Connector) Clone(designator string) *Connector {
	out := *c
	out.Designator = designator
	out.Autogenerate = false
	out.PortsLeft, out.PortsRight = false, false
	out.Pins = make([]*Pin, len(c.Pins))
	for i, p := range c.Pins {
		np := *p
		np.Parent = designator
		np.NumConnections = 0
		np.Side = SideNone
		out.Pins[i] = &np
	}
	out.Loops = make([]*Loop, len(c.Loops))
	for i, l := range c.Loops {
		nl := *l
		out.Loops[i] = &nl
	}
	out.AdditionalComponents = make([]*AdditionalComponent, len(c.AdditionalComponents))
	for i, ac := range c.AdditionalComponents {
		nac := *ac
		out.AdditionalComponents[i] = &nac
	}
	return &out
}

// ResolveMultiplier implements MultiplierSource.
func (c *Connector) ResolveMultiplier(kind MultiplierKind) (value.NumberAndUnit, bool) {
	switch kind {
	case MultiplierPincount:
		return value.NumberAndUnit{Number: float64(c.PinCount)}, true
	case MultiplierPopulated:
		n := 0
		for _, p := range c.Pins {
			if p.NumConnections > 0 {
				n++
			}
		}
		return value.NumberAndUnit{Number: float64(n)}, true
	case MultiplierConnections:
		n := 0
		for _, p := range c.Pins {
			n += p.NumConnections
		}
		return value.NumberAndUnit{Number: float64(n)}, true
	}
	return value.NumberAndUnit{}, false
}

// Describe returns the BOM description.
func (c *Connector) Describe() string {
	pins := ""
	if c.Style != "simple" && (c.ShowPinCount == nil || *c.ShowPinCount) {
		pins = pinCountLabel(c.PinCount)
	}
	return describe("Connector", c.Type, c.Subtype, pins, c.Color.FullNames())
}
