// Package model defines the typed components of a harness: connectors with
// their pins and loops, cables with their wires and shield, additional
// components, connections, metadata and render options.
//
// Every model is built by a validating constructor from a *loader.Map
// (ConnectorFromMap, CableFromMap, ...). The constructor rejects unknown
// keys, coerces scalars into the value types and inflates shorthand (pins
// from pincount, wirecount from colors, broadcast part data). ToMap returns
// the normalized form, which the constructor accepts and turns back into an
// equal model.
package model

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/value"
)

// Category groups BOM entries.
type Category string

const (
	CategoryConnector  Category = "CONNECTOR"
	CategoryCable      Category = "CABLE"
	CategoryWire       Category = "WIRE"
	CategoryAdditional Category = "ADDITIONAL"
	CategoryIgnore     Category = "IGNORE"
)

// Side is the side of a connector a port or loop is drawn on.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// ParseSide accepts "left"/"right" in any case. Empty means unset.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SideNone, true
	case "LEFT":
		return SideLeft, true
	case "RIGHT":
		return SideRight, true
	}
	return SideNone, false
}

// Component holds the fields shared by connectors and cables.
type Component struct {
	Designator           string
	Type                 string
	Subtype              string
	Notes                value.MultilineHypertext
	PartNumbers          value.PartNumberInfo
	IgnoreInBOM          bool
	ShowName             *bool
	AdditionalComponents []*AdditionalComponent
}

var componentKeys = []string{
	"type", "subtype", "notes", "ignore_in_bom", "show_name", "additional_components",
}

// fields reads typed values from one component mapping and reports errors
// against the component's designator.
type fields struct {
	designator string
	m          *loader.Map
}

// checkKeys rejects keys not listed in any of allowed.
func (f fields) checkKeys(allowed ...[]string) error {
	for _, k := range f.m.Keys() {
		known := false
		for _, set := range allowed {
			if slices.Contains(set, k) {
				known = true
				break
			}
		}
		if !known {
			return errs.Component(f.designator, k, "unknown field")
		}
	}
	return nil
}

func (f fields) has(key string) bool {
	v, ok := f.m.Get(key)
	return ok && v != nil
}

func (f fields) get(key string) any {
	v, _ := f.m.Get(key)
	return v
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return true
	}
	return false
}

func (f fields) string(key string) (string, error) {
	v := f.get(key)
	if v == nil {
		return "", nil
	}
	if !isScalar(v) {
		return "", errs.Component(f.designator, key, "expected a scalar, got %s", loader.TypeName(v))
	}
	return loader.ScalarString(v), nil
}

func (f fields) bool(key string) (bool, error) {
	v := f.get(key)
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	}
	return false, errs.Component(f.designator, key, "expected a boolean, got %s", loader.TypeName(v))
}

func (f fields) optionalBool(key string) (*bool, error) {
	if !f.has(key) {
		return nil, nil
	}
	b, err := f.bool(key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// int reads a non-negative integer. ok is false when the key is absent.
func (f fields) int(key string) (n int, ok bool, err error) {
	v := f.get(key)
	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		n = val
	case float64:
		if val != math.Trunc(val) {
			return 0, false, errs.Component(f.designator, key, "expected an integer, got %v", val)
		}
		n = int(val)
	default:
		return 0, false, errs.Component(f.designator, key, "expected an integer, got %s", loader.TypeName(v))
	}
	if n < 0 {
		return 0, false, errs.Component(f.designator, key, "must not be negative, got %d", n)
	}
	return n, true, nil
}

// stringList reads a list of scalars. A single scalar is a list of one.
func (f fields) stringList(key string) ([]string, error) {
	v := f.get(key)
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			if item != nil && !isScalar(item) {
				return nil, errs.Component(f.designator, key, "item %d: expected a scalar, got %s", i, loader.TypeName(item))
			}
			out[i] = loader.ScalarString(item)
		}
		return out, nil
	default:
		if !isScalar(v) {
			return nil, errs.Component(f.designator, key, "expected a list, got %s", loader.TypeName(v))
		}
		return []string{loader.ScalarString(v)}, nil
	}
}

func (f fields) component() (Component, error) {
	c := Component{Designator: f.designator}
	var err error
	if c.Type, err = f.string("type"); err != nil {
		return c, err
	}
	if c.Subtype, err = f.string("subtype"); err != nil {
		return c, err
	}
	c.Notes = value.ToHypertext(f.get("notes"))
	if c.IgnoreInBOM, err = f.bool("ignore_in_bom"); err != nil {
		return c, err
	}
	if c.ShowName, err = f.optionalBool("show_name"); err != nil {
		return c, err
	}
	if c.AdditionalComponents, err = additionalComponentList(f.designator, f.get("additional_components")); err != nil {
		return c, err
	}
	return c, nil
}

// scalarPartNumbers reads pn/manufacturer/mpn/supplier/spn as scalars.
func (f fields) scalarPartNumbers() (value.PartNumberInfo, error) {
	var p value.PartNumberInfo
	for _, key := range value.PartNumberFields {
		s, err := f.string(key)
		if err != nil {
			return p, err
		}
		p = p.With(key, s)
	}
	return p, nil
}

func (c Component) putMap(m *loader.Map) {
	putString(m, "type", c.Type)
	putString(m, "subtype", c.Subtype)
	if !c.Notes.IsEmpty() {
		m.Set("notes", c.Notes.Raw())
	}
	putPartNumbers(m, c.PartNumbers)
	if c.IgnoreInBOM {
		m.Set("ignore_in_bom", true)
	}
	if c.ShowName != nil {
		m.Set("show_name", *c.ShowName)
	}
	if len(c.AdditionalComponents) > 0 {
		list := make([]any, len(c.AdditionalComponents))
		for i, ac := range c.AdditionalComponents {
			list[i] = ac.ToMap()
		}
		m.Set("additional_components", list)
	}
}

func putString(m *loader.Map, key, s string) {
	if s != "" {
		m.Set(key, s)
	}
}

func putPartNumbers(m *loader.Map, p value.PartNumberInfo) {
	for _, key := range value.PartNumberFields {
		putString(m, key, p.Get(key))
	}
}

// describe joins the non-empty parts with ", ".
func describe(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func mapOrEmpty(designator string, v any) (*loader.Map, error) {
	switch val := v.(type) {
	case nil:
		return loader.NewMap(), nil
	case *loader.Map:
		return val, nil
	}
	return nil, errs.Component(designator, "", "expected a mapping, got %s", loader.TypeName(v))
}

func pinCountLabel(n int) string {
	if n == 1 {
		return "1 pin"
	}
	return fmt.Sprintf("%d pins", n)
}
