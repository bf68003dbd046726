package connset

import (
	"fmt"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/model"
)

// Registry is the designator lookup Resolve works against. The harness
// implements it.
type Registry interface {
	Connector(designator string) *model.Connector
	Cable(designator string) *model.Cable
	ConnectorNames() []string
	CableNames() []string

	// Instantiate copies the connector or cable template under designator.
	Instantiate(template, designator string) error
	// Use marks a designator as referenced directly by a connection.
	Use(designator string)
}

type kind int

const (
	kindConnector kind = iota + 1
	kindCable
)

func (k kind) String() string {
	if k == kindCable {
		return "cable"
	}
	return "connector"
}

// resolver carries the auto-instance counters across rows.
type resolver struct {
	reg  Registry
	auto map[string]int
}

// Resolve turns rows into connections. Templates referenced as
// TEMPLATE<sep>NAME are instantiated once per name; a bare reference to an
// autogenerate connector creates a new instance per endpoint.
func Resolve(rows []Row, reg Registry) ([]model.Connection, error) {
	r := &resolver{reg: reg, auto: make(map[string]int)}
	var out []model.Connection
	for _, row := range rows {
		conns, err := r.row(row)
		if err != nil {
			return nil, err
		}
		out = append(out, conns...)
	}
	return out, nil
}

// slotRef is a slot after designator lookup.
type slotRef struct {
	kind  kind
	items []resolvedItem
}

type resolvedItem struct {
	Item
	designator string
	auto       bool
}

func (r *resolver) row(row Row) ([]model.Connection, error) {
	path := row.Path()
	slots := make([]slotRef, len(row.Slots))
	for i, slot := range row.Slots {
		ref, err := r.slot(slot, path)
		if err != nil {
			return nil, err
		}
		slots[i] = ref
	}

	var fromSlot, viaSlot, toSlot *slotRef
	switch len(slots) {
	case 1:
		for _, it := range slots[0].items {
			if it.auto {
				if _, err := r.autoInstance(it.designator, path); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	case 2:
		switch {
		case slots[0].kind == kindConnector && slots[1].kind == kindCable:
			fromSlot, viaSlot = &slots[0], &slots[1]
		case slots[0].kind == kindCable && slots[1].kind == kindConnector:
			viaSlot, toSlot = &slots[0], &slots[1]
		default:
			return nil, rowError(path, "a two-slot row needs one connector and one cable, got %s and %s",
				slots[0].kind, slots[1].kind)
		}
	case 3:
		if slots[0].kind != kindConnector || slots[1].kind != kindCable || slots[2].kind != kindConnector {
			return nil, rowError(path, "expected connector, cable, connector; got %s, %s, %s",
				slots[0].kind, slots[1].kind, slots[2].kind)
		}
		fromSlot, viaSlot, toSlot = &slots[0], &slots[1], &slots[2]
	}

	from, err := r.pins(fromSlot, path)
	if err != nil {
		return nil, err
	}
	to, err := r.pins(toSlot, path)
	if err != nil {
		return nil, err
	}
	via, err := r.wires(viaSlot, path)
	if err != nil {
		return nil, err
	}

	lengths := []int{len(via)}
	if fromSlot != nil {
		lengths = append([]int{len(from)}, lengths...)
	}
	if toSlot != nil {
		lengths = append(lengths, len(to))
	}
	n := 1
	for _, l := range lengths {
		n = max(n, l)
	}
	for _, l := range lengths {
		if l != 1 && l != n {
			return nil, rowError(path, "slot lengths %v cannot be zipped; each must be 1 or %d", lengths, n)
		}
	}

	if from, err = r.broadcastPins(fromSlot, from, n, path); err != nil {
		return nil, err
	}
	if to, err = r.broadcastPins(toSlot, to, n, path); err != nil {
		return nil, err
	}
	if len(via) == 1 && n > 1 {
		for range n - 1 {
			via = append(via, via[0])
		}
	}

	conns := make([]model.Connection, n)
	for k := range n {
		conns[k] = model.Connection{Via: via[k]}
		if from != nil {
			conns[k].From = from[k]
		}
		if to != nil {
			conns[k].To = to[k]
		}
	}
	return conns, nil
}

// slot looks up each item's designator, instantiating templates.
func (r *resolver) slot(slot Slot, path string) (slotRef, error) {
	var ref slotRef
	for _, item := range slot {
		ri, k, err := r.lookup(item, path)
		if err != nil {
			return ref, err
		}
		if ref.kind != 0 && ref.kind != k {
			return ref, rowError(path, "slot mixes connectors and cables (%s)", item.Token)
		}
		ref.kind = k
		ref.items = append(ref.items, ri)
	}
	return ref, nil
}

func (r *resolver) lookup(item Item, path string) (resolvedItem, kind, error) {
	ri := resolvedItem{Item: item}

	// A designator that exists as written wins over template syntax.
	if k := r.kindOf(item.Token); k != 0 {
		ri.designator = item.Token
		if c := r.reg.Connector(item.Token); c != nil && c.Autogenerate {
			ri.auto = true
			return ri, k, nil
		}
		r.reg.Use(item.Token)
		return ri, k, nil
	}
	if item.Template == "" {
		return ri, 0, r.unknown(item.Token, path)
	}

	tk := r.kindOf(item.Template)
	if tk == 0 {
		return ri, 0, r.unknown(item.Template, path)
	}
	if k := r.kindOf(item.Name); k != 0 {
		if k != tk {
			return ri, 0, rowError(path, "%s is a %s but template %s is a %s", item.Name, k, item.Template, tk)
		}
	} else if err := r.reg.Instantiate(item.Template, item.Name); err != nil {
		return ri, 0, err
	}
	r.reg.Use(item.Name)
	ri.designator = item.Name
	return ri, tk, nil
}

func (r *resolver) kindOf(designator string) kind {
	if r.reg.Connector(designator) != nil {
		return kindConnector
	}
	if r.reg.Cable(designator) != nil {
		return kindCable
	}
	return 0
}

func (r *resolver) unknown(name, path string) error {
	return errs.UnknownDesignator(path, name, r.reg.ConnectorNames(), r.reg.CableNames())
}

// autoInstance creates the next "_NAME_k" instance of an autogenerate
// connector.
func (r *resolver) autoInstance(template, path string) (string, error) {
	for {
		r.auto[template]++
		name := fmt.Sprintf("_%s_%d", template, r.auto[template])
		if r.kindOf(name) != 0 {
			continue
		}
		if err := r.reg.Instantiate(template, name); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		r.reg.Use(name)
		return name, nil
	}
}

// pins resolves a connector slot to pin references, creating the
// instance for each autogenerate item.
func (r *resolver) pins(s *slotRef, path string) ([]*model.PinRef, error) {
	if s == nil {
		return nil, nil
	}
	var refs []*model.PinRef
	for _, it := range s.items {
		designator := it.designator
		if it.auto {
			name, err := r.autoInstance(designator, path)
			if err != nil {
				return nil, err
			}
			designator = name
		}
		pins, err := selectPins(r.reg.Connector(designator), it.Selectors, path)
		if err != nil {
			return nil, err
		}
		for _, p := range pins {
			refs = append(refs, &model.PinRef{Connector: designator, Index: p.Index})
		}
	}
	return refs, nil
}

// broadcastPins repeats a single pin reference n times. An autogenerate
// connector gets a fresh instance per position instead.
func (r *resolver) broadcastPins(s *slotRef, refs []*model.PinRef, n int, path string) ([]*model.PinRef, error) {
	if s == nil || len(refs) != 1 || n == 1 {
		return refs, nil
	}
	out := make([]*model.PinRef, n)
	out[0] = refs[0]
	for k := 1; k < n; k++ {
		ref := *refs[0]
		if s.items[0].auto {
			name, err := r.autoInstance(s.items[0].designator, path)
			if err != nil {
				return nil, err
			}
			ref.Connector = name
		}
		out[k] = &ref
	}
	return out, nil
}

func selectPins(c *model.Connector, selectors []string, path string) ([]*model.Pin, error) {
	if selectors == nil {
		if c.PinCount == 1 {
			return c.Pins[:1], nil
		}
		return c.Pins, nil
	}
	if len(selectors) == 0 {
		return nil, rowError(path, "%s: empty pin selection", c.Designator)
	}
	var out []*model.Pin
	for _, sel := range selectors {
		pins := c.PinsBySelector(sel)
		if len(pins) == 0 {
			return nil, &errs.Error{
				Kind:       errs.KindComponentValidation,
				Message:    fmt.Sprintf("%s: %s has no pin or pin label %q", path, c.Designator, sel),
				Designator: c.Designator,
				Field:      "pins",
				Path:       path,
				Token:      sel,
			}
		}
		out = append(out, pins...)
	}
	return out, nil
}

// wires resolves the cable slot to wire references.
func (r *resolver) wires(s *slotRef, path string) ([]model.WireRef, error) {
	var refs []model.WireRef
	for _, it := range s.items {
		c := r.reg.Cable(it.designator)
		ws, err := selectWires(c, it.Selectors, path)
		if err != nil {
			return nil, err
		}
		for _, w := range ws {
			refs = append(refs, model.WireRef{Cable: c.Designator, Index: w.Index, Shield: w.IsShield})
		}
	}
	return refs, nil
}

func selectWires(c *model.Cable, selectors []string, path string) ([]*model.Wire, error) {
	if selectors == nil {
		return c.Wires, nil
	}
	if len(selectors) == 0 {
		return nil, rowError(path, "%s: empty wire selection", c.Designator)
	}
	var out []*model.Wire
	for _, sel := range selectors {
		ws := c.WiresBySelector(sel)
		if len(ws) == 0 {
			return nil, &errs.Error{
				Kind:       errs.KindComponentValidation,
				Message:    fmt.Sprintf("%s: %s has no wire or wire label %q", path, c.Designator, sel),
				Designator: c.Designator,
				Field:      "wires",
				Path:       path,
				Token:      sel,
			}
		}
		out = append(out, ws...)
	}
	return out, nil
}
