package harness

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/filare/internal/bom"
	"github.com/roach88/filare/internal/connset"
	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
	"github.com/roach88/filare/internal/model"
	"github.com/roach88/filare/internal/schema"
	"github.com/roach88/filare/internal/value"
)

// MultiplierLookup returns the quantity multiplier of a harness by name.
type MultiplierLookup interface {
	For(harness string) (int, error)
}

// Config carries the inputs to Build besides the document itself.
type Config struct {
	// MetadataFiles are merged, in order, under the document's metadata.
	MetadataFiles []string
	// ExtraMetadata is merged over everything else.
	ExtraMetadata *loader.Map
	// Prepend files are concatenated in front of each input file, so their
	// anchors are visible to it. BuildFromFiles only.
	Prepend []string
	// SearchDirs are tried, in order, for relative file names.
	SearchDirs []string

	// SharedBOM, when set, is populated by each built harness.
	SharedBOM *bom.BOM
	// QtyMultiplier scales the harness's BOM contributions. Zero means 1.
	QtyMultiplier int
	// Multipliers overrides QtyMultiplier per harness name in
	// BuildFromFiles.
	Multipliers MultiplierLookup

	Logger *slog.Logger
}

// Build assembles a harness from a parsed document. No harness is returned
// when any step fails.
func Build(name string, doc *loader.Map, cfg Config) (*Harness, error) {
	h := New(name, cfg.Logger)
	if cfg.QtyMultiplier > 0 {
		h.QtyMultiplier = cfg.QtyMultiplier
	}

	if err := schema.Validate(doc, name); err != nil {
		return nil, err
	}
	schema.CheckVersion(doc, name, h.logger)

	var err error
	if h.Options, err = readOptions(doc, name); err != nil {
		return nil, err
	}
	notes, _ := doc.Get("notes")
	h.Notes = value.ToHypertext(notes)

	if err := h.addComponents(doc, name); err != nil {
		return nil, err
	}
	if err := h.readAdditionalItems(doc, name); err != nil {
		return nil, err
	}

	rawRows, err := doc.GetList("connections")
	if err != nil {
		return nil, errs.Schema(name, err)
	}
	rows, err := connset.Parse(rawRows, h.Options.TemplateSeparator)
	if err != nil {
		return nil, err
	}
	conns, err := connset.Resolve(rows, h)
	if err != nil {
		return nil, err
	}
	for _, conn := range conns {
		if err := h.connect(conn); err != nil {
			return nil, err
		}
	}
	h.removeTemplates()
	if err := h.resolveLoops(); err != nil {
		return nil, err
	}

	if h.Metadata, err = readMetadata(doc, name, cfg); err != nil {
		return nil, err
	}
	if err := h.computeQtyMultipliers(); err != nil {
		return nil, err
	}

	h.logger.Info("harness built",
		"harness", name,
		"connectors", len(h.connectorOrder),
		"cables", len(h.cableOrder),
		"connections", len(h.Connections),
	)

	if cfg.SharedBOM != nil {
		if err := h.PopulateBOM(cfg.SharedBOM); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// BuildFromFiles builds one harness per input file. Each input is parsed
// together with the Prepend files; the harness is named after the input's
// base name without extension.
func BuildFromFiles(inputs []string, cfg Config) ([]*Harness, error) {
	out := make([]*Harness, 0, len(inputs))
	for _, input := range inputs {
		path, err := loader.ResolvePath(input, cfg.SearchDirs...)
		if err != nil {
			return nil, err
		}
		c := cfg
		c.SearchDirs = append([]string{filepath.Dir(path)}, cfg.SearchDirs...)

		doc, err := loader.ParseConcatMergeFiles(append(slices.Clone(cfg.Prepend), path), nil, c.SearchDirs...)
		if err != nil {
			return nil, err
		}

		name := HarnessName(path)
		if cfg.Multipliers != nil {
			if c.QtyMultiplier, err = cfg.Multipliers.For(name); err != nil {
				return nil, err
			}
		}
		h, err := Build(name, doc, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// HarnessName returns the base name of path without its extension.
func HarnessName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readOptions(doc *loader.Map, source string) (*model.Options, error) {
	options, err := doc.GetMap("options")
	if err != nil {
		return nil, errs.Schema(source, err)
	}
	pageOptions, err := doc.GetMap("page_options")
	if err != nil {
		return nil, errs.Schema(source, err)
	}
	return model.ResolveOptions(options, pageOptions)
}

func (h *Harness) addComponents(doc *loader.Map, source string) error {
	connectors, err := doc.GetMap("connectors")
	if err != nil {
		return errs.Schema(source, err)
	}
	for _, d := range connectors.Keys() {
		spec, err := componentSpec(connectors, d)
		if err != nil {
			return err
		}
		if _, err := h.AddConnector(d, spec); err != nil {
			return err
		}
	}

	cables, err := doc.GetMap("cables")
	if err != nil {
		return errs.Schema(source, err)
	}
	for _, d := range cables.Keys() {
		spec, err := componentSpec(cables, d)
		if err != nil {
			return err
		}
		if _, err := h.AddCable(d, spec); err != nil {
			return err
		}
	}
	return nil
}

func componentSpec(section *loader.Map, designator string) (*loader.Map, error) {
	v, _ := section.Get(designator)
	if v == nil {
		return nil, nil
	}
	m, ok := v.(*loader.Map)
	if !ok {
		return nil, errs.Component(designator, "", "expected a mapping, got %s", loader.TypeName(v))
	}
	return m, nil
}

func (h *Harness) readAdditionalItems(doc *loader.Map, source string) error {
	items, err := doc.GetList("additional_bom_items")
	if err != nil {
		return errs.Schema(source, err)
	}
	for i, item := range items {
		owner := fmt.Sprintf("additional_bom_items[%d]", i)
		m, ok := item.(*loader.Map)
		if !ok {
			return errs.Component(owner, "", "expected a mapping, got %s", loader.TypeName(item))
		}
		ac, err := model.AdditionalComponentFromMap(owner, m)
		if err != nil {
			return err
		}
		h.AdditionalBOMItems = append(h.AdditionalBOMItems, ac)
	}
	return nil
}

// readMetadata merges the metadata files, the document's metadata and the
// extra metadata, later sources winning.
func readMetadata(doc *loader.Map, source string, cfg Config) (*model.Metadata, error) {
	fromFiles, err := loader.ParseMergeFiles(cfg.MetadataFiles, cfg.SearchDirs...)
	if err != nil {
		return nil, err
	}
	docMeta, err := doc.GetMap("metadata")
	if err != nil {
		return nil, errs.Schema(source, err)
	}
	md, err := model.MetadataFromMap(loader.MergeContent(fromFiles, docMeta))
	if err != nil {
		return nil, err
	}
	if cfg.ExtraMetadata.Len() == 0 {
		return md, nil
	}
	return md.Merge(cfg.ExtraMetadata)
}

// OutputName returns the metadata output name, or the harness name.
func (h *Harness) OutputName() string {
	if h.Metadata != nil && h.Metadata.OutputName != "" {
		return h.Metadata.OutputName
	}
	return h.Name
}
