package model

import (
	"strings"
	"unicode/utf8"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/value"
)

const optionsDesignator = "options"

// DefaultTemplateSeparator splits "TEMPLATE-DESIGNATOR" connection tokens.
const DefaultTemplateSeparator = "-"

// Options are the render options of a harness.
type Options struct {
	FontName          string
	BGColor           string
	BGColorNode       string
	BGColorConnector  string
	BGColorCable      string
	BGColorBundle     string
	ColorMode         string
	MiniBOMMode       bool
	TemplateSeparator string
}

// DefaultOptions returns the options used when a document sets none.
func DefaultOptions() *Options {
	return &Options{
		FontName:          "arial",
		BGColor:           "WH",
		BGColorNode:       "WH",
		BGColorConnector:  "WH",
		BGColorCable:      "WH",
		BGColorBundle:     "WH",
		ColorMode:         "SHORT",
		MiniBOMMode:       true,
		TemplateSeparator: DefaultTemplateSeparator,
	}
}

var colorModes = []string{"SHORT", "FULL", "HEX", "HTML"}

// OptionsFromMap applies m over the defaults. Unknown keys are rejected.
func OptionsFromMap(m *loader.Map) (*Options, error) {
	o := DefaultOptions()
	if m == nil {
		return o, nil
	}
	f := fields{designator: optionsDesignator, m: m}

	colors := []struct {
		key string
		dst *string
	}{
		{"bgcolor", &o.BGColor},
		{"bgcolor_node", &o.BGColorNode},
		{"bgcolor_connector", &o.BGColorConnector},
		{"bgcolor_cable", &o.BGColorCable},
		{"bgcolor_bundle", &o.BGColorBundle},
	}
	allowed := []string{"fontname", "color_mode", "mini_bom_mode", "template_separator"}
	for _, c := range colors {
		allowed = append(allowed, c.key)
	}
	if err := f.checkKeys(allowed); err != nil {
		return nil, err
	}

	for _, c := range colors {
		s, err := f.string(c.key)
		if err != nil {
			return nil, err
		}
		if s == "" {
			continue
		}
		if _, err := value.ParseSingleColor(s, optionsDesignator); err != nil {
			return nil, err
		}
		*c.dst = s
	}

	if s, err := f.string("fontname"); err != nil {
		return nil, err
	} else if s != "" {
		o.FontName = s
	}

	if s, err := f.string("color_mode"); err != nil {
		return nil, err
	} else if s != "" {
		valid := false
		for _, mode := range colorModes {
			valid = valid || strings.ToUpper(s) == mode
		}
		if !valid {
			return nil, errs.Component(optionsDesignator, "color_mode", "unknown color mode %q", s)
		}
		o.ColorMode = s
	}

	if f.has("mini_bom_mode") {
		b, err := f.bool("mini_bom_mode")
		if err != nil {
			return nil, err
		}
		o.MiniBOMMode = b
	}

	if s, err := f.string("template_separator"); err != nil {
		return nil, err
	} else if s != "" {
		if utf8.RuneCountInString(s) != 1 {
			return nil, errs.Component(optionsDesignator, "template_separator", "must be a single character, got %q", s)
		}
		o.TemplateSeparator = s
	}
	return o, nil
}

// ResolveOptions merges options and page_options; page_options wins.
func ResolveOptions(options, pageOptions *loader.Map) (*Options, error) {
	merged := loader.MergeContent(options, pageOptions)
	return OptionsFromMap(merged)
}

// ToMap returns the normalized form.
func (o *Options) ToMap() *loader.Map {
	return loader.MapOf(
		"fontname", o.FontName,
		"bgcolor", o.BGColor,
		"bgcolor_node", o.BGColorNode,
		"bgcolor_connector", o.BGColorConnector,
		"bgcolor_cable", o.BGColorCable,
		"bgcolor_bundle", o.BGColorBundle,
		"color_mode", o.ColorMode,
		"mini_bom_mode", o.MiniBOMMode,
		"template_separator", o.TemplateSeparator,
	)
}
