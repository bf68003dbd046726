package model

import (
	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
)

const metadataDesignator = "metadata"

// Revision is one entry of the revision history. Fields holds the
// free-form details (changelog, name, date) in declaration order.
type Revision struct {
	Name   string
	Fields *loader.Map
}

// Template selects the title block drawn around the output.
type Template struct {
	Name  string
	Sided int
}

// Metadata describes the harness document.
type Metadata struct {
	Title        string
	PN           string
	Company      string
	Description  string
	Authors      *loader.Map
	Revisions    []Revision
	SheetCurrent int
	SheetTotal   int
	SheetName    string
	OutputDir    string
	OutputName   string
	Template     Template

	// Extras keeps unknown keys in declaration order.
	Extras *loader.Map
}

// MetadataFromMap validates metadata. Revisions default to a single "A" and
// sheets default to 1 of 1.
func MetadataFromMap(m *loader.Map) (*Metadata, error) {
	if m == nil {
		m = loader.NewMap()
	}
	f := fields{designator: metadataDesignator, m: m}
	md := &Metadata{Extras: loader.NewMap(), Authors: loader.NewMap()}

	strs := []struct {
		key string
		dst *string
	}{
		{"title", &md.Title},
		{"pn", &md.PN},
		{"company", &md.Company},
		{"description", &md.Description},
		{"sheet_name", &md.SheetName},
		{"output_dir", &md.OutputDir},
		{"output_name", &md.OutputName},
	}
	known := map[string]bool{"authors": true, "revisions": true, "sheet_current": true, "sheet_total": true, "template": true}
	for _, s := range strs {
		known[s.key] = true
		v, err := f.string(s.key)
		if err != nil {
			return nil, err
		}
		*s.dst = v
	}

	if f.has("authors") {
		authors, ok := f.get("authors").(*loader.Map)
		if !ok {
			return nil, errs.Component(metadataDesignator, "authors", "expected a mapping, got %s", loader.TypeName(f.get("authors")))
		}
		md.Authors = authors.Clone()
	}

	if err := md.parseRevisions(f); err != nil {
		return nil, err
	}

	var err error
	var ok bool
	if md.SheetCurrent, ok, err = f.int("sheet_current"); err != nil {
		return nil, err
	} else if !ok {
		md.SheetCurrent = 1
	}
	if md.SheetTotal, ok, err = f.int("sheet_total"); err != nil {
		return nil, err
	} else if !ok {
		md.SheetTotal = max(1, md.SheetCurrent)
	}
	if md.SheetCurrent < 1 {
		return nil, errs.Component(metadataDesignator, "sheet_current", "must be at least 1")
	}
	if md.SheetCurrent > md.SheetTotal {
		return nil, errs.Component(metadataDesignator, "sheet_current", "sheet %d exceeds sheet_total %d", md.SheetCurrent, md.SheetTotal)
	}

	if f.has("template") {
		tm, ok := f.get("template").(*loader.Map)
		if !ok {
			return nil, errs.Component(metadataDesignator, "template", "expected a mapping, got %s", loader.TypeName(f.get("template")))
		}
		tf := fields{designator: metadataDesignator, m: tm}
		if err := tf.checkKeys([]string{"name", "sided"}); err != nil {
			return nil, err
		}
		if md.Template.Name, err = tf.string("name"); err != nil {
			return nil, err
		}
		if md.Template.Sided, _, err = tf.int("sided"); err != nil {
			return nil, err
		}
		if md.Template.Sided > 2 {
			return nil, errs.Component(metadataDesignator, "template", "sided must be 1 or 2, got %d", md.Template.Sided)
		}
	}

	for _, k := range m.Keys() {
		if known[k] {
			continue
		}
		v, _ := m.Get(k)
		md.Extras.Set(k, v)
	}
	return md, nil
}

func (md *Metadata) parseRevisions(f fields) error {
	if !f.has("revisions") {
		md.Revisions = []Revision{{Name: "A", Fields: loader.NewMap()}}
		return nil
	}
	revs, ok := f.get("revisions").(*loader.Map)
	if !ok {
		return errs.Component(metadataDesignator, "revisions", "expected a mapping, got %s", loader.TypeName(f.get("revisions")))
	}
	for _, name := range revs.Keys() {
		v, _ := revs.Get(name)
		details, err := mapOrEmpty(metadataDesignator, v)
		if err != nil {
			return errs.Component(metadataDesignator, "revisions", "revision %q: expected a mapping", name)
		}
		md.Revisions = append(md.Revisions, Revision{Name: name, Fields: details.Clone()})
	}
	if len(md.Revisions) == 0 {
		md.Revisions = []Revision{{Name: "A", Fields: loader.NewMap()}}
	}
	return nil
}

// Merge returns the metadata produced by merging extra over md's map form.
func (md *Metadata) Merge(extra *loader.Map) (*Metadata, error) {
	return MetadataFromMap(loader.MergeContent(md.ToMap(), extra))
}

// ToMap returns the normalized form.
func (md *Metadata) ToMap() *loader.Map {
	m := loader.NewMap()
	putString(m, "title", md.Title)
	putString(m, "pn", md.PN)
	putString(m, "company", md.Company)
	putString(m, "description", md.Description)
	if md.Authors.Len() > 0 {
		m.Set("authors", md.Authors.Clone())
	}
	revs := loader.NewMap()
	for _, r := range md.Revisions {
		revs.Set(r.Name, r.Fields.Clone())
	}
	m.Set("revisions", revs)
	m.Set("sheet_current", md.SheetCurrent)
	m.Set("sheet_total", md.SheetTotal)
	putString(m, "sheet_name", md.SheetName)
	putString(m, "output_dir", md.OutputDir)
	putString(m, "output_name", md.OutputName)
	if md.Template != (Template{}) {
		tm := loader.NewMap()
		putString(tm, "name", md.Template.Name)
		if md.Template.Sided != 0 {
			tm.Set("sided", md.Template.Sided)
		}
		m.Set("template", tm)
	}
	for _, k := range md.Extras.Keys() {
		v, _ := md.Extras.Get(k)
		m.Set(k, v)
	}
	return m
}
