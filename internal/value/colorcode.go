package value

import (
	"slices"
	"strings"

	"github.com/roach88/filare/internal/errs"
)

// colorCodes maps palette names to the ordered wire colors they assign.
var colorCodes = map[string][]string{
	// DIN 47100, without the repetition of the first 44 colors with black.
	"DIN": {
		"WH", "BN", "GN", "YE", "GY", "PK", "BU", "RD", "BK", "VT",
		"GYPK", "RDBU", "WHGN", "BNGN", "WHYE", "YEBN", "WHGY", "GYBN", "WHPK", "PKBN",
		"WHBU", "BNBU", "WHRD", "BNRD", "WHBK", "BNBK", "GYGN", "YEGY", "PKGN", "YEPK",
		"GNBU", "YEBU", "GNRD", "YERD", "GNBK", "YEBK", "GYBU", "PKBU", "GYRD", "PKRD",
		"GYBK", "PKBK", "BUBK", "RDBK",
	},
	// IEC 60757, the resistor color sequence.
	"IEC": {"BN", "RD", "OG", "YE", "GN", "BU", "VT", "GY", "WH", "BK"},
	"BW":  {"BK", "WH"},
	// 25-pair telephone cable, tip and ring alternating.
	"TEL": {
		"BUWH", "WHBU", "OGWH", "WHOG", "GNWH", "WHGN", "BNWH", "WHBN", "SLWH", "WHSL",
		"BURD", "RDBU", "OGRD", "RDOG", "GNRD", "RDGN", "BNRD", "RDBN", "SLRD", "RDSL",
		"BUBK", "BKBU", "OGBK", "BKOG", "GNBK", "BKGN", "BNBK", "BKBN", "SLBK", "BKSL",
		"BUYE", "YEBU", "OGYE", "YEOG", "GNYE", "YEGN", "BNYE", "YEBN", "SLYE", "YESL",
		"BUVT", "VTBU", "OGVT", "VTOG", "GNVT", "VTGN", "BNVT", "VTBN", "SLVT", "VTSL",
	},
	"TELALT": {
		"WHBU", "BU", "WHOG", "OG", "WHGN", "GN", "WHBN", "BN", "WHSL", "SL",
		"RDBU", "BURD", "RDOG", "OGRD", "RDGN", "GNRD", "RDBN", "BNRD", "RDSL", "SLRD",
		"BKBU", "BUBK", "BKOG", "OGBK", "BKGN", "GNBK", "BKBN", "BNBK", "BKSL", "SLBK",
		"YEBU", "BUYE", "YEOG", "OGYE", "YEGN", "GNYE", "YEBN", "BNYE", "YESL", "SLYE",
		"VTBU", "BUVT", "VTOG", "OGVT", "VTGN", "GNVT", "VTBN", "BNVT", "VTSL", "SLVT",
	},
	"T568A": {"WHGN", "GN", "WHOG", "BU", "WHBU", "OG", "WHBN", "BN"},
	"T568B": {"WHOG", "OG", "WHGN", "BU", "WHBU", "GN", "WHBN", "BN"},
}

// ColorCodeNames returns the recognized palette names, sorted.
func ColorCodeNames() []string {
	names := make([]string, 0, len(colorCodes))
	for k := range colorCodes {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// IsColorCode reports whether name is a recognized palette.
func IsColorCode(name string) bool {
	_, ok := colorCodes[strings.ToUpper(name)]
	return ok
}

// ColorCode returns a copy of the named palette. ok is false for an
// unknown name.
func ColorCode(name string) (palette []string, ok bool) {
	p, ok := colorCodes[strings.ToUpper(name)]
	return slices.Clone(p), ok
}

// ColorsForCode returns the first n colors of the named palette, repeating
// the palette when n exceeds its length.
func ColorsForCode(code string, n int, designator string) ([]MultiColor, error) {
	palette, ok := ColorCode(code)
	if !ok {
		return nil, errs.Component(designator, "color_code", "unknown color code %q (known: %s)",
			code, strings.Join(ColorCodeNames(), ", "))
	}
	out := make([]MultiColor, n)
	for i := range n {
		mc, err := parseMultiColorString(palette[i%len(palette)], designator)
		if err != nil {
			return nil, err
		}
		out[i] = mc
	}
	return out, nil
}
