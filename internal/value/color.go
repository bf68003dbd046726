package value

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/filare/internal/errs"
)

// colorInfo is one entry of the fixed color table.
type colorInfo struct {
	hex  string
	name string
}

// colorTable maps two-letter codes (IEC 60757 plus common extensions) to
// their display hex value and full name.
var colorTable = map[string]colorInfo{
	"BK": {"#000000", "black"},
	"WH": {"#ffffff", "white"},
	"GY": {"#999999", "grey"},
	"PK": {"#ff66cc", "pink"},
	"RD": {"#ff0000", "red"},
	"OG": {"#ff8000", "orange"},
	"YE": {"#ffff00", "yellow"},
	"OL": {"#708000", "olive green"},
	"GN": {"#00ff00", "green"},
	"TQ": {"#00ffff", "turquoise"},
	"LB": {"#a0dfff", "light blue"},
	"BU": {"#0066ff", "blue"},
	"VT": {"#8000ff", "violet"},
	"BN": {"#895956", "brown"},
	"BG": {"#ceb673", "beige"},
	"IV": {"#f5f0d0", "ivory"},
	"SL": {"#708090", "slate"},
	"CU": {"#d6775e", "copper"},
	"AL": {"#aaaaaa", "aluminum"},
	"SN": {"#aaaaaa", "tin"},
	"SR": {"#84878c", "silver"},
	"GD": {"#ffcf80", "gold"},
}

var hexColorRe = regexp.MustCompile(`^(?:#|0[xX])([0-9a-fA-F]{6})$`)

// SingleColor is one named or hex color. Code is empty for hex-only colors.
type SingleColor struct {
	Code string
	Hex  string
}

// ParseSingleColor accepts a two-letter code from the color table
// (case-insensitive), "#rrggbb" or "0xRRGGBB". designator names the
// component for error messages.
func ParseSingleColor(code, designator string) (SingleColor, error) {
	s := strings.TrimSpace(code)
	if m := hexColorRe.FindStringSubmatch(s); m != nil {
		return SingleColor{Hex: "#" + strings.ToLower(m[1])}, nil
	}
	upper := strings.ToUpper(s)
	if info, ok := colorTable[upper]; ok {
		return SingleColor{Code: upper, Hex: info.hex}, nil
	}
	return SingleColor{}, errs.Component(designator, "color", "unknown color %q", code)
}

// String returns the code, or the hex value for hex-only colors.
func (c SingleColor) String() string {
	if c.Code != "" {
		return c.Code
	}
	return c.Hex
}

// FullName returns the color's English name, or the hex value.
func (c SingleColor) FullName() string {
	if info, ok := colorTable[c.Code]; ok {
		return info.name
	}
	return c.Hex
}

// MultiColor is an ordered sequence of colors, e.g. a striped wire.
type MultiColor []SingleColor

// ParseMultiColor accepts concatenated two-letter codes ("GYPK"), a
// ":"-separated list ("GY:#ff66cc"), a single hex color, a list of those,
// or nil for no color.
func ParseMultiColor(v any, designator string) (MultiColor, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case MultiColor:
		return val, nil
	case []any:
		var out MultiColor
		for _, item := range val {
			mc, err := ParseMultiColor(item, designator)
			if err != nil {
				return nil, err
			}
			out = append(out, mc...)
		}
		return out, nil
	case string:
		return parseMultiColorString(val, designator)
	default:
		return nil, errs.Component(designator, "color", "unsupported color value %v", v)
	}
}

func parseMultiColorString(s, designator string) (MultiColor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var parts []string
	switch {
	case strings.Contains(s, ":"):
		parts = strings.Split(s, ":")
	case hexColorRe.MatchString(s):
		parts = []string{s}
	default:
		if len(s)%2 != 0 {
			return nil, errs.Component(designator, "color", "unknown color %q", s)
		}
		for i := 0; i < len(s); i += 2 {
			parts = append(parts, s[i:i+2])
		}
	}
	out := make(MultiColor, 0, len(parts))
	for _, p := range parts {
		c, err := ParseSingleColor(p, designator)
		if err != nil {
			return nil, errs.Component(designator, "color", "unknown color %q in %q", p, s)
		}
		out = append(out, c)
	}
	return out, nil
}

// String renders the colors in input notation: "GYPK", or ":"-separated
// when any member is hex-only.
func (m MultiColor) String() string {
	codes := make([]string, len(m))
	sep := ""
	for i, c := range m {
		codes[i] = c.String()
		if c.Code == "" {
			sep = ":"
		}
	}
	return strings.Join(codes, sep)
}

// FullNames renders the colors as names joined by "/".
func (m MultiColor) FullNames() string {
	names := make([]string, len(m))
	for i, c := range m {
		names[i] = c.FullName()
	}
	return strings.Join(names, "/")
}

// Hex returns the hex values in order.
func (m MultiColor) Hex() []string {
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = c.Hex
	}
	return out
}

// HTMLPaddedList returns exactly three hex values for striped rendering:
// [a a a] for one color, [a b a] for two, [a b c] for three.
func (m MultiColor) HTMLPaddedList() ([]string, error) {
	h := m.Hex()
	switch len(h) {
	case 1:
		return []string{h[0], h[0], h[0]}, nil
	case 2:
		return []string{h[0], h[1], h[0]}, nil
	case 3:
		return h, nil
	default:
		return nil, errs.ColorPadding(m.String(), len(h))
	}
}

// Render formats the colors for the given color mode: SHORT (codes),
// FULL (names), HEX. Lower-case modes lower-case the result.
func (m MultiColor) Render(mode string) string {
	var s string
	switch strings.ToUpper(mode) {
	case "FULL":
		s = m.FullNames()
	case "HEX":
		s = strings.Join(m.Hex(), ":")
	default:
		s = m.String()
	}
	if mode != "" && mode == strings.ToLower(mode) {
		return strings.ToLower(s)
	}
	return s
}

// GoString aids test failure output.
func (m MultiColor) GoString() string {
	return fmt.Sprintf("MultiColor(%q)", m.String())
}
