// Package schema checks the shape of a merged harness document before the
// component models are built.
package schema

import (
	_ "embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
)

// SupportedSchemaVersion is the newest schema_version this build understands.
const SupportedSchemaVersion = 1

// TopLevelKeys lists the keys a harness document may carry.
var TopLevelKeys = []string{
	"connectors",
	"cables",
	"connections",
	"metadata",
	"options",
	"page_options",
	"additional_bom_items",
	"notes",
	"schema_version",
	"templates",
}

//go:embed document.cue
var documentSchema string

// Validate checks doc against #Document. source names the input in errors.
// Top-level keys with a null value are treated as absent.
func Validate(doc *loader.Map, source string) error {
	plain := make(map[string]any, doc.Len())
	for _, k := range doc.Keys() {
		if !slices.Contains(TopLevelKeys, k) {
			return &errs.Error{
				Kind:    errs.KindSchemaViolation,
				Message: fmt.Sprintf("%s: unknown top-level key %q (allowed: %s)", source, k, strings.Join(TopLevelKeys, ", ")),
				Path:    source,
				Token:   k,
			}
		}
		v, _ := doc.Get(k)
		if v == nil {
			continue
		}
		plain[k] = loader.PlainValue(v)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(documentSchema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Document"))

	data := ctx.Encode(plain)
	if err := data.Err(); err != nil {
		return errs.Schema(source, err)
	}
	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return errs.Schema(source, err)
	}
	return nil
}

// CheckVersion reads schema_version and warns when it is newer than
// SupportedSchemaVersion. A missing version is treated as 1.
func CheckVersion(doc *loader.Map, source string, logger *slog.Logger) int {
	v, ok := doc.Get("schema_version")
	n, isInt := v.(int)
	if !ok || !isInt {
		return 1
	}
	if n > SupportedSchemaVersion && logger != nil {
		logger.Warn("document schema_version is newer than supported",
			"source", source,
			"schema_version", n,
			"supported", SupportedSchemaVersion,
		)
	}
	return n
}
