package value

import "strings"

// PartNumberInfo identifies a purchasable part.
type PartNumberInfo struct {
	PN           string `json:"pn,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	MPN          string `json:"mpn,omitempty"`
	Supplier     string `json:"supplier,omitempty"`
	SPN          string `json:"spn,omitempty"`
}

// PartNumberFields lists the part-data keys accepted on components.
var PartNumberFields = []string{"pn", "manufacturer", "mpn", "supplier", "spn"}

// IsEmpty reports whether no field is set.
func (p PartNumberInfo) IsEmpty() bool {
	return p == PartNumberInfo{}
}

// Get returns the field named by key (one of PartNumberFields).
func (p PartNumberInfo) Get(key string) string {
	switch key {
	case "pn":
		return p.PN
	case "manufacturer":
		return p.Manufacturer
	case "mpn":
		return p.MPN
	case "supplier":
		return p.Supplier
	case "spn":
		return p.SPN
	}
	return ""
}

// With returns a copy of p with field key set to v.
func (p PartNumberInfo) With(key, v string) PartNumberInfo {
	switch key {
	case "pn":
		p.PN = v
	case "manufacturer":
		p.Manufacturer = v
	case "mpn":
		p.MPN = v
	case "supplier":
		p.Supplier = v
	case "spn":
		p.SPN = v
	}
	return p
}

// ClearShared returns p with every field cleared that equals the same field
// on any of parents. Used to avoid repeating a cable's part data on each
// of its wires.
func (p PartNumberInfo) ClearShared(parents ...PartNumberInfo) PartNumberInfo {
	for _, key := range PartNumberFields {
		v := p.Get(key)
		if v == "" {
			continue
		}
		for _, parent := range parents {
			if parent.Get(key) == v {
				p = p.With(key, "")
				break
			}
		}
	}
	return p
}

// String renders the set fields as "P/N: x, MPN: y".
func (p PartNumberInfo) String() string {
	var parts []string
	if p.PN != "" {
		parts = append(parts, "P/N: "+p.PN)
	}
	switch {
	case p.Manufacturer != "" && p.MPN != "":
		parts = append(parts, p.Manufacturer+": "+p.MPN)
	case p.Manufacturer != "":
		parts = append(parts, p.Manufacturer)
	case p.MPN != "":
		parts = append(parts, "MPN: "+p.MPN)
	}
	switch {
	case p.Supplier != "" && p.SPN != "":
		parts = append(parts, p.Supplier+": "+p.SPN)
	case p.Supplier != "":
		parts = append(parts, p.Supplier)
	case p.SPN != "":
		parts = append(parts, "SPN: "+p.SPN)
	}
	return strings.Join(parts, ", ")
}

// PartNumberInfoList is an ordered list of part data, e.g. one per wire.
type PartNumberInfoList []PartNumberInfo

// KeepOnlyShared returns the field-wise intersection: each field keeps its
// value only when every entry has that same value.
func (l PartNumberInfoList) KeepOnlyShared() PartNumberInfo {
	if len(l) == 0 {
		return PartNumberInfo{}
	}
	shared := l[0]
	for _, key := range PartNumberFields {
		v := shared.Get(key)
		for _, p := range l[1:] {
			if p.Get(key) != v {
				shared = shared.With(key, "")
				break
			}
		}
	}
	return shared
}
