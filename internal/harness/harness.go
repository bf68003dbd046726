// Package harness assembles connectors, cables and connections into a
// Harness and feeds its parts into a bill of materials.
//
// A Harness is normally produced by Build (from a parsed document) or
// BuildFromFiles (from YAML files on disk). Build runs these steps:
//
//  1. Validate the document shape and read the render options.
//  2. Construct connectors, then cables, in declaration order. A designator
//     may appear only once across both.
//  3. Parse and resolve the connection rows, instantiating templates and
//     autogenerate connectors, and record each connection.
//  4. Drop components that served only as templates, then place loops on
//     a connector side that has connections.
//  5. Resolve metadata: metadata files, then the document's metadata, then
//     the caller's extra metadata, each overriding the previous.
//  6. Compute the quantity multiplier of every additional component.
//
// The BOM is populated on demand, into the harness's own BOM or into a
// shared one passed by the caller.
//
// A Harness is not safe for concurrent use.
package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/model"
	"github.com/roach88/filare/internal/value"
)

// Harness is a connected wiring assembly.
type Harness struct {
	// Name identifies the harness in per-harness BOM columns. BuildFromFiles
	// uses the input file's base name.
	Name string

	Metadata           *model.Metadata
	Options            *model.Options
	Notes              value.MultilineHypertext
	Connections        []model.Connection
	AdditionalBOMItems []*model.AdditionalComponent

	// QtyMultiplier scales every BOM contribution of the harness.
	QtyMultiplier int

	connectors     map[string]*model.Connector
	connectorOrder []string
	cables         map[string]*model.Cable
	cableOrder     []string

	// templates are designators instantiated from; used are designators a
	// connection referenced directly.
	templates map[string]bool
	used      map[string]bool

	bom       *bom.BOM
	populated map[*bom.BOM]bool
	logger    *slog.Logger
}

// New creates an empty harness. A nil logger discards output.
func New(name string, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	md, _ := model.MetadataFromMap(nil)
	return &Harness{
		Name:          name,
		Metadata:      md,
		Options:       model.DefaultOptions(),
		QtyMultiplier: 1,
		connectors:    make(map[string]*model.Connector),
		cables:        make(map[string]*model.Cable),
		templates:     make(map[string]bool),
		used:          make(map[string]bool),
		populated:     make(map[*bom.BOM]bool),
		logger:        logger,
	}
}

// Connector returns the connector with designator, or nil.
func (h *Harness) Connector(designator string) *model.Connector {
	return h.connectors[designator]
}

// Cable returns the cable with designator, or nil.
func (h *Harness) Cable(designator string) *model.Cable {
	return h.cables[designator]
}

// ConnectorNames returns the connector designators in declaration order.
func (h *Harness) ConnectorNames() []string {
	return slices.Clone(h.connectorOrder)
}

// CableNames returns the cable designators in declaration order.
func (h *Harness) CableNames() []string {
	return slices.Clone(h.cableOrder)
}

// Connectors returns the connectors in declaration order.
func (h *Harness) Connectors() []*model.Connector {
	out := make([]*model.Connector, len(h.connectorOrder))
	for i, d := range h.connectorOrder {
		out[i] = h.connectors[d]
	}
	return out
}

// Cables returns the cables in declaration order.
func (h *Harness) Cables() []*model.Cable {
	out := make([]*model.Cable, len(h.cableOrder))
	for i, d := range h.cableOrder {
		out[i] = h.cables[d]
	}
	return out
}

// AddConnector validates spec and adds it as a connector. A nil spec is an
// empty declaration.
func (h *Harness) AddConnector(designator string, spec *loader.Map) (*model.Connector, error) {
	c, err := model.ConnectorFromMap(designator, spec)
	if err != nil {
		return nil, err
	}
	if err := h.addConnector(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddCable validates spec and adds it as a cable.
func (h *Harness) AddCable(designator string, spec *loader.Map) (*model.Cable, error) {
	c, err := model.CableFromMap(designator, spec)
	if err != nil {
		return nil, err
	}
	if err := h.addCable(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Harness) addConnector(c *model.Connector) error {
	if err := h.checkUnique(c.Designator); err != nil {
		return err
	}
	h.connectors[c.Designator] = c
	h.connectorOrder = append(h.connectorOrder, c.Designator)
	h.logger.Debug("connector added", "designator", c.Designator, "pincount", c.PinCount)
	return nil
}

func (h *Harness) addCable(c *model.Cable) error {
	if err := h.checkUnique(c.Designator); err != nil {
		return err
	}
	h.cables[c.Designator] = c
	h.cableOrder = append(h.cableOrder, c.Designator)
	h.logger.Debug("cable added", "designator", c.Designator, "wirecount", c.WireCount)
	return nil
}

func (h *Harness) checkUnique(designator string) error {
	if _, ok := h.connectors[designator]; ok {
		return errs.DuplicateDesignator(designator, "already a connector")
	}
	if _, ok := h.cables[designator]; ok {
		return errs.DuplicateDesignator(designator, "already a cable")
	}
	return nil
}

// Instantiate copies the connector or cable template under designator.
func (h *Harness) Instantiate(template, designator string) error {
	switch {
	case h.connectors[template] != nil:
		if err := h.addConnector(h.connectors[template].Clone(designator)); err != nil {
			return err
		}
	case h.cables[template] != nil:
		if err := h.addCable(h.cables[template].Clone(designator)); err != nil {
			return err
		}
	default:
		return errs.UnknownDesignator("", template, h.ConnectorNames(), h.CableNames())
	}
	h.templates[template] = true
	return nil
}

// Use marks designator as referenced directly by a connection.
func (h *Harness) Use(designator string) {
	h.used[designator] = true
}

// removeTemplates drops components that were instantiated from but never
// referenced directly.
func (h *Harness) removeTemplates() {
	for t := range h.templates {
		if h.used[t] {
			continue
		}
		if _, ok := h.connectors[t]; ok {
			delete(h.connectors, t)
			h.connectorOrder = slices.DeleteFunc(h.connectorOrder, func(d string) bool { return d == t })
		}
		if _, ok := h.cables[t]; ok {
			delete(h.cables, t)
			h.cableOrder = slices.DeleteFunc(h.cableOrder, func(d string) bool { return d == t })
		}
		h.logger.Debug("template removed", "designator", t)
	}
}

// Connect adds one connection. from and to may be empty for an open end;
// fromPin, wire and toPin are selectors as in a connection row and must
// each match exactly one pin or wire.
func (h *Harness) Connect(from, fromPin, via, wire, to, toPin string) error {
	cable := h.cables[via]
	if cable == nil {
		return errs.UnknownDesignator("connect", via, h.ConnectorNames(), h.CableNames())
	}
	wires := cable.WiresBySelector(wire)
	if len(wires) != 1 {
		return errs.Component(via, "wires", "selector %q matches %d wires; expected exactly one", wire, len(wires))
	}
	conn := model.Connection{Via: model.WireRef{Cable: via, Index: wires[0].Index, Shield: wires[0].IsShield}}

	var err error
	if conn.From, err = h.pinRef(from, fromPin); err != nil {
		return err
	}
	if conn.To, err = h.pinRef(to, toPin); err != nil {
		return err
	}
	return h.connect(conn)
}

func (h *Harness) pinRef(designator, sel string) (*model.PinRef, error) {
	if designator == "" {
		return nil, nil
	}
	c := h.connectors[designator]
	if c == nil {
		return nil, errs.UnknownDesignator("connect", designator, h.ConnectorNames(), h.CableNames())
	}
	pins := c.PinsBySelector(sel)
	if len(pins) != 1 {
		return nil, errs.Component(designator, "pins", "selector %q matches %d pins; expected exactly one", sel, len(pins))
	}
	return &model.PinRef{Connector: designator, Index: pins[0].Index}, nil
}

// connect records conn and updates the pin, port and termination state.
func (h *Harness) connect(conn model.Connection) error {
	cable := h.cables[conn.Via.Cable]
	if cable == nil {
		return errs.UnknownDesignator("connect", conn.Via.Cable, h.ConnectorNames(), h.CableNames())
	}
	if cable.WireAt(conn.Via.Index) == nil {
		return errs.Component(cable.Designator, "wires", "no wire at index %d", conn.Via.Index)
	}

	from, err := h.pin(conn.From)
	if err != nil {
		return err
	}
	to, err := h.pin(conn.To)
	if err != nil {
		return err
	}
	if from != nil {
		from.NumConnections++
		if from.Side == model.SideNone {
			from.Side = model.SideRight
		}
		h.connectors[conn.From.Connector].PortsRight = true
		cable.Terminations++
	}
	if to != nil {
		to.NumConnections++
		if to.Side == model.SideNone {
			to.Side = model.SideLeft
		}
		h.connectors[conn.To.Connector].PortsLeft = true
		cable.Terminations++
	}
	h.Connections = append(h.Connections, conn)
	return nil
}

func (h *Harness) pin(ref *model.PinRef) (*model.Pin, error) {
	if ref == nil {
		return nil, nil
	}
	c := h.connectors[ref.Connector]
	if c == nil {
		return nil, errs.UnknownDesignator("connect", ref.Connector, h.ConnectorNames(), h.CableNames())
	}
	if ref.Index < 0 || ref.Index >= len(c.Pins) {
		return nil, errs.Component(c.Designator, "pins", "no pin at index %d", ref.Index)
	}
	return c.Pins[ref.Index], nil
}

// resolveLoops assigns every loop a side with connections. An explicit
// side must be active; otherwise the side the loop's pins are attached on
// wins, then LEFT.
func (h *Harness) resolveLoops() error {
	for _, d := range h.connectorOrder {
		c := h.connectors[d]
		for _, l := range c.Loops {
			side, err := loopSide(c, l)
			if err != nil {
				return err
			}
			l.Side = side
		}
	}
	return nil
}

func loopSide(c *model.Connector, l *model.Loop) (model.Side, error) {
	name := l.First + "-" + l.Second
	if !c.PortsLeft && !c.PortsRight {
		return "", errs.UnsupportedLoopSide(c.Designator, "loop %s has no side to attach to; the connector has no connections", name)
	}
	active := func(s model.Side) bool {
		return (s == model.SideLeft && c.PortsLeft) || (s == model.SideRight && c.PortsRight)
	}
	if l.Side != model.SideNone {
		if !active(l.Side) {
			return "", errs.UnsupportedLoopSide(c.Designator, "loop %s asks for side %s, but there is no side %s with connections",
				name, l.Side, strings.ToLower(string(l.Side)))
		}
		return l.Side, nil
	}
	if c.PortsLeft && c.PortsRight {
		for _, id := range []string{l.First, l.Second} {
			if p := c.PinByID(id); p != nil && p.Side != model.SideNone {
				return p.Side, nil
			}
		}
		return model.SideLeft, nil
	}
	if c.PortsLeft {
		return model.SideLeft, nil
	}
	return model.SideRight, nil
}

// computeQtyMultipliers resolves the multiplier of every additional
// component against its parent.
func (h *Harness) computeQtyMultipliers() error {
	for _, c := range h.Connectors() {
		for _, ac := range c.AdditionalComponents {
			if err := ac.ComputeQtyMultiplier(c.Designator, c); err != nil {
				return err
			}
		}
	}
	for _, c := range h.Cables() {
		for _, ac := range c.AdditionalComponents {
			if err := ac.ComputeQtyMultiplier(c.Designator, c); err != nil {
				return err
			}
		}
	}
	for i, ac := range h.AdditionalBOMItems {
		if err := ac.ComputeQtyMultiplier(fmt.Sprintf("additional_bom_items[%d]", i), nil); err != nil {
			return err
		}
	}
	return nil
}
