package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/canonical"
	"github.com/roach88/filare/internal/value"
)

// marshalStrings converts a string list to canonical JSON TEXT.
func marshalStrings(list []string) (string, error) {
	arr := make([]any, len(list))
	for i, s := range list {
		arr[i] = s
	}
	data, err := canonical.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

// marshalPartNumbers stores only the fields that are set.
func marshalPartNumbers(p value.PartNumberInfo) (string, error) {
	m := make(map[string]any)
	for _, key := range value.PartNumberFields {
		if v := p.Get(key); v != "" {
			m[key] = v
		}
	}
	data, err := canonical.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal part numbers: %w", err)
	}
	return string(data), nil
}

func unmarshalPartNumbers(data string) (value.PartNumberInfo, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return value.PartNumberInfo{}, fmt.Errorf("unmarshal part numbers: %w", err)
	}
	var p value.PartNumberInfo
	for _, key := range value.PartNumberFields {
		p = p.With(key, m[key])
	}
	return p, nil
}

// marshalPerHarness keeps first-seen order as a list of
// {"harness", "qty"} objects. Quantities are number strings.
func marshalPerHarness(per []bom.HarnessQty) (string, error) {
	arr := make([]any, len(per))
	for i, h := range per {
		arr[i] = map[string]any{
			"harness": h.Harness,
			"qty":     h.Qty.NumberString(),
		}
	}
	data, err := canonical.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("marshal per-harness: %w", err)
	}
	return string(data), nil
}

func unmarshalPerHarness(data, unit string) ([]bom.HarnessQty, error) {
	var raw []struct {
		Harness string `json:"harness"`
		Qty     string `json:"qty"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal per-harness: %w", err)
	}
	out := make([]bom.HarnessQty, len(raw))
	for i, r := range raw {
		n, err := parseQty(r.Qty, unit)
		if err != nil {
			return nil, err
		}
		out[i] = bom.HarnessQty{Harness: r.Harness, Qty: n}
	}
	return out, nil
}

func parseQty(number, unit string) (value.NumberAndUnit, error) {
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return value.NumberAndUnit{}, fmt.Errorf("parse qty %q: %w", number, err)
	}
	return value.NumberAndUnit{Number: f, Unit: unit}, nil
}

// Fingerprint identifies a BOM by its entries' fingerprints and totals.
func Fingerprint(entries []*bom.Entry) string {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = map[string]any{
			"entry": e.Fingerprint,
			"qty":   e.Qty.NumberString(),
		}
	}
	return canonical.MustFingerprint(canonical.DomainBuild, map[string]any{"entries": list})
}
