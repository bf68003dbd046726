package model

import (
	"strings"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/value"
)

// MultiplierKind names a quantity multiplier resolved against the parent
// component. The empty kind means a plain scalar.
type MultiplierKind string

const (
	MultiplierScalar      MultiplierKind = ""
	MultiplierPincount    MultiplierKind = "PINCOUNT"
	MultiplierPopulated   MultiplierKind = "POPULATED"
	MultiplierConnections MultiplierKind = "CONNECTIONS"
	MultiplierWirecount   MultiplierKind = "WIRECOUNT"
	MultiplierTermination MultiplierKind = "TERMINATION"
	MultiplierLength      MultiplierKind = "LENGTH"
	MultiplierTotalLength MultiplierKind = "TOTAL_LENGTH"
)

var multiplierKinds = []MultiplierKind{
	MultiplierPincount, MultiplierPopulated, MultiplierConnections,
	MultiplierWirecount, MultiplierTermination, MultiplierLength, MultiplierTotalLength,
}

// QtyMultiplier scales an additional component's quantity. Either Kind is
// set, or Scalar holds a fixed factor.
type QtyMultiplier struct {
	Kind   MultiplierKind
	Scalar float64
}

// String returns the kind name or the scalar.
func (q QtyMultiplier) String() string {
	if q.Kind != MultiplierScalar {
		return string(q.Kind)
	}
	return value.FormatNumber(q.Scalar)
}

func parseQtyMultiplier(designator string, v any) (QtyMultiplier, error) {
	if v == nil {
		return QtyMultiplier{Scalar: 1}, nil
	}
	if s, ok := v.(string); ok {
		upper := strings.ToUpper(strings.TrimSpace(s))
		for _, k := range multiplierKinds {
			if string(k) == upper {
				return QtyMultiplier{Kind: k}, nil
			}
		}
	}
	n, err := value.ParseNumberAndUnit(v)
	if err != nil || n.Unit != "" {
		return QtyMultiplier{}, errs.Component(designator, "qty_multiplier", "expected a number or one of %s, got %q",
			kindNames(), loader.ScalarString(v))
	}
	return QtyMultiplier{Scalar: n.Number}, nil
}

func kindNames() string {
	names := make([]string, len(multiplierKinds))
	for i, k := range multiplierKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// MultiplierSource is a component that can resolve symbolic multipliers.
type MultiplierSource interface {
	ResolveMultiplier(kind MultiplierKind) (value.NumberAndUnit, bool)
}

// AdditionalComponent is an extra BOM item attached to a component or to
// the harness as a whole.
type AdditionalComponent struct {
	Type          string
	Subtype       string
	Description   string
	Qty           value.NumberAndUnit
	QtyMultiplier QtyMultiplier
	Designators   []string
	PartNumbers   value.PartNumberInfo
	Notes         value.MultilineHypertext
	Category      Category

	// Multiplier is set by ComputeQtyMultiplier.
	Multiplier value.NumberAndUnit
	computed   bool
}

var additionalKeys = []string{
	"type", "subtype", "description", "qty", "unit", "qty_multiplier",
	"designators", "notes", "category",
	"pn", "manufacturer", "mpn", "supplier", "spn",
}

// AdditionalComponentFromMap validates one additional component. owner names
// the parent component (or the harness section) in errors.
func AdditionalComponentFromMap(owner string, m *loader.Map) (*AdditionalComponent, error) {
	f := fields{designator: owner, m: m}
	if err := f.checkKeys(additionalKeys); err != nil {
		return nil, err
	}
	ac := &AdditionalComponent{Category: CategoryAdditional}
	var err error
	if ac.Type, err = f.string("type"); err != nil {
		return nil, err
	}
	if ac.Subtype, err = f.string("subtype"); err != nil {
		return nil, err
	}
	if ac.Description, err = f.string("description"); err != nil {
		return nil, err
	}
	if ac.Type == "" && ac.Description == "" {
		return nil, errs.Component(owner, "additional_components", "needs a type or a description")
	}

	ac.Qty = value.NumberAndUnit{Number: 1}
	if f.has("qty") {
		q, err := value.ParseNumberAndUnit(f.get("qty"))
		if err != nil {
			return nil, errs.Component(owner, "qty", "%v", err)
		}
		ac.Qty = q
	}
	unit, err := f.string("unit")
	if err != nil {
		return nil, err
	}
	if unit != "" {
		if ac.Qty.Unit != "" && ac.Qty.Unit != unit {
			return nil, errs.Component(owner, "unit", "qty unit %q conflicts with unit %q", ac.Qty.Unit, unit)
		}
		ac.Qty.Unit = unit
	}

	if ac.QtyMultiplier, err = parseQtyMultiplier(owner, f.get("qty_multiplier")); err != nil {
		return nil, err
	}
	if ac.Designators, err = f.stringList("designators"); err != nil {
		return nil, err
	}
	if ac.PartNumbers, err = f.scalarPartNumbers(); err != nil {
		return nil, err
	}
	ac.Notes = value.ToHypertext(f.get("notes"))

	cat, err := f.string("category")
	if err != nil {
		return nil, err
	}
	if cat != "" {
		ac.Category = Category(strings.ToUpper(cat))
	}
	return ac, nil
}

func additionalComponentList(owner string, v any) ([]*AdditionalComponent, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errs.Component(owner, "additional_components", "expected a list, got %s", loader.TypeName(v))
	}
	out := make([]*AdditionalComponent, 0, len(list))
	for i, item := range list {
		m, ok := item.(*loader.Map)
		if !ok {
			return nil, errs.Component(owner, "additional_components", "item %d: expected a mapping, got %s", i, loader.TypeName(item))
		}
		ac, err := AdditionalComponentFromMap(owner, m)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, nil
}

// ToMap returns the normalized form.
func (ac *AdditionalComponent) ToMap() *loader.Map {
	m := loader.NewMap()
	putString(m, "type", ac.Type)
	putString(m, "subtype", ac.Subtype)
	putString(m, "description", ac.Description)
	m.Set("qty", ac.Qty.String())
	if ac.QtyMultiplier.Kind != MultiplierScalar {
		m.Set("qty_multiplier", string(ac.QtyMultiplier.Kind))
	} else if ac.QtyMultiplier.Scalar != 1 {
		m.Set("qty_multiplier", ac.QtyMultiplier.Scalar)
	}
	if len(ac.Designators) > 0 {
		list := make([]any, len(ac.Designators))
		for i, d := range ac.Designators {
			list[i] = d
		}
		m.Set("designators", list)
	}
	putPartNumbers(m, ac.PartNumbers)
	if !ac.Notes.IsEmpty() {
		m.Set("notes", ac.Notes.Raw())
	}
	m.Set("category", string(ac.Category))
	return m
}

// Describe returns the BOM description: the explicit description, or the
// type and subtype.
func (ac *AdditionalComponent) Describe() string {
	if ac.Description != "" {
		return ac.Description
	}
	return describe(ac.Type, ac.Subtype)
}

// ComputeQtyMultiplier resolves the multiplier against parent and stores
// it. parent is nil for harness-level items, which only accept scalars.
func (ac *AdditionalComponent) ComputeQtyMultiplier(owner string, parent MultiplierSource) error {
	if ac.QtyMultiplier.Kind == MultiplierScalar {
		ac.Multiplier = value.NumberAndUnit{Number: ac.QtyMultiplier.Scalar}
		ac.computed = true
		return nil
	}
	if parent == nil {
		return errs.Component(owner, "qty_multiplier", "%s needs a parent component; harness-level items accept only numbers",
			ac.QtyMultiplier.Kind)
	}
	n, ok := parent.ResolveMultiplier(ac.QtyMultiplier.Kind)
	if !ok {
		return errs.Component(owner, "qty_multiplier", "%s does not apply to this component", ac.QtyMultiplier.Kind)
	}
	ac.Multiplier = n
	ac.computed = true
	return nil
}

// TotalQty is Qty times the computed multiplier. A length multiplier
// contributes its unit when Qty has none.
func (ac *AdditionalComponent) TotalQty() value.NumberAndUnit {
	m := ac.Multiplier
	if !ac.computed {
		m = value.NumberAndUnit{Number: ac.QtyMultiplier.Scalar}
	}
	total := ac.Qty.Scale(m.Number)
	if total.Unit == "" {
		total.Unit = m.Unit
	}
	return total
}

// MultiplierKey identifies the multiplier semantics for BOM fingerprints.
func (ac *AdditionalComponent) MultiplierKey() string {
	return string(ac.QtyMultiplier.Kind)
}
