package value

import (
	"fmt"
	"strings"
)

// MultilineHypertext is free text that may contain literal "<br>" tags.
type MultilineHypertext struct {
	raw string
}

// ToHypertext coerces nil to empty text, a string to raw text and a list to
// its elements joined by "<br>".
func ToHypertext(v any) MultilineHypertext {
	switch val := v.(type) {
	case nil:
		return MultilineHypertext{}
	case MultilineHypertext:
		return val
	case string:
		return MultilineHypertext{raw: val}
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = ToHypertext(p).raw
		}
		return MultilineHypertext{raw: strings.Join(parts, "<br>")}
	case []string:
		return MultilineHypertext{raw: strings.Join(val, "<br>")}
	default:
		return MultilineHypertext{raw: fmt.Sprint(val)}
	}
}

// Raw returns the text as given.
func (h MultilineHypertext) Raw() string { return h.raw }

// IsEmpty reports whether the text is empty.
func (h MultilineHypertext) IsEmpty() bool { return h.raw == "" }

// Clean returns the text with newlines replaced by "<br />".
func (h MultilineHypertext) Clean() string {
	return strings.ReplaceAll(h.raw, "\n", "<br />")
}

// String returns the raw text.
func (h MultilineHypertext) String() string { return h.raw }
