// Package connset turns the connection-set rows of a harness document into
// pin-wire-pin connections.
//
// A row lists up to three slots: a connector, a cable and a connector. Each
// slot holds one or more items, an item being a designator with an optional
// selector:
//
//	- [{X1: [1-3]}, {W1: [1, 2, 3]}, {X2: "3-1"}]
//	- [X1, W1]               # bare designators, open right end
//	- [{T-X5: 1}, {W2: s}]   # instantiate template T as X5; shield wire
//
// Parse validates the syntax; Resolve looks the designators up in a
// Registry, instantiates templates and zips the slots into connections.
package connset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
)

// Item is one designator reference inside a slot.
type Item struct {
	// Token is the designator as written.
	Token string
	// Template and Name split a TEMPLATE<sep>NAME token. Template is empty
	// for plain designators, where Name equals Token.
	Template string
	Name     string
	// Selectors are the expanded pin or wire selectors. Nil means the
	// designator was given bare.
	Selectors []string
}

// Slot is one position of a row.
type Slot []Item

// Row is one parsed connection-set row.
type Row struct {
	Index int
	Slots []Slot
}

// Path locates the row in the input document.
func (r Row) Path() string {
	return rowPath(r.Index)
}

func rowPath(i int) string {
	return fmt.Sprintf("connections[%d]", i)
}

// Expand expands one selector token. With sep "-", "1-3" yields [1 2 3]
// and "3-1" yields [3 2 1]. Ranges use the template separator, so with sep
// "." the range is written "1.3" and "1-3" is a literal pin id. A token with
// one separator whose sides are not both integers is returned unchanged. A
// token with more than one separator is an error.
func Expand(token, sep string) ([]string, error) {
	return expand(token, sep, "")
}

func expand(token, sep, path string) ([]string, error) {
	switch strings.Count(token, sep) {
	case 0:
		return []string{token}, nil
	case 1:
	default:
		return nil, errs.MultipleSeparator(path, token, sep)
	}
	left, right, _ := strings.Cut(token, sep)
	a, errA := strconv.Atoi(strings.TrimSpace(left))
	b, errB := strconv.Atoi(strings.TrimSpace(right))
	if errA != nil || errB != nil {
		return []string{token}, nil
	}
	step := 1
	if b < a {
		step = -1
	}
	out := make([]string, 0, abs(b-a)+1)
	for i := a; ; i += step {
		out = append(out, strconv.Itoa(i))
		if i == b {
			break
		}
	}
	return out, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Parse validates the rows of a connections list. sep is the template
// separator, which also separates range bounds.
func Parse(rows []any, sep string) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for i, raw := range rows {
		path := rowPath(i)
		list, ok := raw.([]any)
		if !ok {
			return nil, rowError(path, "row must be a list of slots, got %s", loader.TypeName(raw))
		}
		if len(list) == 0 || len(list) > 3 {
			return nil, rowError(path, "row must have 1 to 3 slots, got %d", len(list))
		}
		row := Row{Index: i, Slots: make([]Slot, len(list))}
		for j, rawSlot := range list {
			slot, err := parseSlot(rawSlot, sep, path)
			if err != nil {
				return nil, err
			}
			if len(slot) == 0 {
				return nil, rowError(path, "slot %d is empty", j)
			}
			row.Slots[j] = slot
		}
		out = append(out, row)
	}
	return out, nil
}

func parseSlot(v any, sep, path string) (Slot, error) {
	switch val := v.(type) {
	case []any:
		var slot Slot
		for _, item := range val {
			if _, nested := item.([]any); nested {
				return nil, rowError(path, "slot items cannot be nested lists")
			}
			s, err := parseSlot(item, sep, path)
			if err != nil {
				return nil, err
			}
			slot = append(slot, s...)
		}
		return slot, nil
	case *loader.Map:
		slot := make(Slot, 0, val.Len())
		for _, token := range val.Keys() {
			sel, _ := val.Get(token)
			item, err := parseItem(token, sel, sep, path)
			if err != nil {
				return nil, err
			}
			slot = append(slot, item)
		}
		return slot, nil
	case string:
		item, err := parseItem(val, nil, sep, path)
		if err != nil {
			return nil, err
		}
		return Slot{item}, nil
	}
	return nil, rowError(path, "expected a designator or a mapping, got %s", loader.TypeName(v))
}

func parseItem(token string, sel any, sep, path string) (Item, error) {
	item := Item{Token: token, Name: token}
	switch strings.Count(token, sep) {
	case 0:
	case 1:
		item.Template, item.Name, _ = strings.Cut(token, sep)
		if item.Template == "" || item.Name == "" {
			return item, rowError(path, "token %q needs a template and a designator around %q", token, sep)
		}
	default:
		return item, errs.MultipleSeparator(path, token, sep)
	}

	var err error
	item.Selectors, err = parseSelector(sel, sep, path)
	return item, err
}

func parseSelector(v any, sep, path string) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s == nil {
				continue
			}
			if _, ok := s.(string); !ok && !isNumber(s) {
				return nil, rowError(path, "selector must be a pin or wire id, got %s", loader.TypeName(s))
			}
			expanded, err := expand(loader.ScalarString(s), sep, path)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
		return out, nil
	case string:
		return expand(val, sep, path)
	default:
		if !isNumber(v) {
			return nil, rowError(path, "selector must be a pin or wire id, got %s", loader.TypeName(v))
		}
		return []string{loader.ScalarString(v)}, nil
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}

func rowError(path, format string, args ...any) *errs.Error {
	return &errs.Error{
		Kind:    errs.KindComponentValidation,
		Message: path + ": " + fmt.Sprintf(format, args...),
		Path:    path,
	}
}
