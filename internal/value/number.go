// Package value provides the canonical scalar types of a harness model:
// quantities with units, wire and pin colors, multi-line hypertext and part
// number data.
//
// Every type has an explicit parse constructor that accepts the loose forms
// found in YAML input and produces one normalized representation used
// everywhere downstream. Values are immutable after construction.
package value

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/filare/internal/errs"
)

// NumberAndUnit is a quantity with an optional unit ("" means unitless).
type NumberAndUnit struct {
	Number float64
	Unit   string
}

var numberAndUnitRe = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)(?:\s*([^\d\s.+\-].*?))?\s*$`)

// ParseNumberAndUnit accepts "<number>", "<number> <unit>", "<number><unit>",
// a NumberAndUnit, or a raw Go number.
func ParseNumberAndUnit(v any) (NumberAndUnit, error) {
	switch val := v.(type) {
	case NumberAndUnit:
		return val, nil
	case int:
		return NumberAndUnit{Number: float64(val)}, nil
	case int64:
		return NumberAndUnit{Number: float64(val)}, nil
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return NumberAndUnit{}, errs.InvalidNumber(FormatNumber(val))
		}
		return NumberAndUnit{Number: val}, nil
	case string:
		m := numberAndUnitRe.FindStringSubmatch(val)
		if m == nil {
			return NumberAndUnit{}, errs.InvalidNumber(val)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return NumberAndUnit{}, errs.InvalidNumber(val)
		}
		return NumberAndUnit{Number: n, Unit: m[2]}, nil
	default:
		return NumberAndUnit{}, errs.InvalidNumber(fmt.Sprint(v))
	}
}

// ParseNumberWithDefaultUnit parses v and applies unit when v carries none.
func ParseNumberWithDefaultUnit(v any, unit string) (NumberAndUnit, error) {
	n, err := ParseNumberAndUnit(v)
	if err != nil {
		return n, err
	}
	if n.Unit == "" {
		n.Unit = unit
	}
	return n, nil
}

// Add returns the sum of n and other. Units must match.
func (n NumberAndUnit) Add(other NumberAndUnit) (NumberAndUnit, error) {
	if n.Unit != other.Unit {
		return NumberAndUnit{}, errs.UnitMismatch(n.Unit, other.Unit)
	}
	return NumberAndUnit{Number: n.Number + other.Number, Unit: n.Unit}, nil
}

// Mul multiplies n by a unitless factor.
func (n NumberAndUnit) Mul(factor NumberAndUnit) (NumberAndUnit, error) {
	if factor.Unit != "" {
		return NumberAndUnit{}, &errs.Error{
			Kind:    errs.KindUnitMismatch,
			Message: fmt.Sprintf("cannot multiply %s by %s: factor must be unitless", n, factor),
		}
	}
	return n.Scale(factor.Number), nil
}

// Scale multiplies the number and keeps the unit.
func (n NumberAndUnit) Scale(f float64) NumberAndUnit {
	return NumberAndUnit{Number: n.Number * f, Unit: n.Unit}
}

// IsZero reports whether the number is 0.
func (n NumberAndUnit) IsZero() bool {
	return n.Number == 0
}

// NumberString formats the number without the unit. See FormatNumber.
func (n NumberAndUnit) NumberString() string {
	return FormatNumber(n.Number)
}

// String formats n as "<number>" or "<number> <unit>".
func (n NumberAndUnit) String() string {
	if n.Unit == "" {
		return n.NumberString()
	}
	return n.NumberString() + " " + n.Unit
}

// FormatNumber renders f rounded to nine decimal places, so that sums such
// as 0.1+0.2 print as 0.3. Integral values have no decimal point.
func FormatNumber(f float64) string {
	if math.Abs(f) < 1e15 {
		f = math.Round(f*1e9) / 1e9
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsNumeric reports whether s parses as a plain number with no unit.
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
