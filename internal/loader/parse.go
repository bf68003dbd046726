package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filare/internal/errs"
)

// designatorSections are the top-level keys whose mapping keys are
// designators. A repeated key there is a duplicate designator rather than a
// plain YAML error.
var designatorSections = map[string]bool{
	"connectors": true,
	"cables":     true,
}

// ParseMergeYAML parses every document in text and merges them left to right.
// Empty input yields an empty Map.
func ParseMergeYAML(text string) (*Map, error) {
	return parseMerge([]byte(text), "<string>")
}

func parseMerge(data []byte, source string) (*Map, error) {
	docs, err := parser{}.documents(data, source)
	if err != nil {
		return nil, err
	}
	out := NewMap()
	for _, doc := range docs {
		out = MergeContent(out, doc)
	}
	return out, nil
}

// parser converts YAML streams into Maps.
type parser struct {
	// mergeTopLevel merges repeated top-level keys instead of rejecting
	// them. Set for textually concatenated files, where each file may
	// contribute its own "connectors:" section.
	mergeTopLevel bool
}

// documents decodes a YAML stream into one Map per non-empty document.
func (p parser) documents(data []byte, source string) ([]*Map, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*Map
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &errs.Error{
				Kind:    errs.KindSchemaViolation,
				Message: fmt.Sprintf("%s: failed to parse YAML", source),
				Path:    source,
				Err:     err,
			}
		}
		v, err := p.value(&node, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		switch doc := v.(type) {
		case nil:
			continue
		case *Map:
			docs = append(docs, doc)
		default:
			return nil, &errs.Error{
				Kind:    errs.KindSchemaViolation,
				Message: fmt.Sprintf("%s: document %d must be a mapping, got %s", source, i, TypeName(v)),
				Path:    source,
			}
		}
	}
	return docs, nil
}

// value converts a yaml.Node tree into Map/[]any/scalar values,
// resolving aliases and "<<" merge keys.
func (p parser) value(n *yaml.Node, path []string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return p.value(n.Content[0], path)
	case yaml.AliasNode:
		return p.value(n.Alias, path)
	case yaml.ScalarNode:
		return scalarValue(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := p.value(item, append(path, fmt.Sprintf("[%d]", i)))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return p.mapping(n, path)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func scalarValue(n *yaml.Node) (any, error) {
	if n.Tag == "!!null" {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	switch val := v.(type) {
	case string, int, float64, bool, nil:
		return val, nil
	case int64:
		return int(val), nil
	default:
		// Timestamps, binary and out-of-range integers stay as written.
		return n.Value, nil
	}
}

func (p parser) mapping(n *yaml.Node, path []string) (any, error) {
	merged := NewMap()
	explicit := NewMap()
	lines := make(map[string]int)

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.AliasNode {
			keyNode = keyNode.Alias
		}

		if keyNode.Tag == "!!merge" || (keyNode.Value == "<<" && keyNode.Style == 0) {
			if err := p.applyMergeKey(merged, valNode, path); err != nil {
				return nil, err
			}
			continue
		}

		key := keyNode.Value
		v, err := p.value(valNode, append(path, key))
		if err != nil {
			return nil, err
		}
		if prev, dup := lines[key]; dup {
			if !(p.mergeTopLevel && len(path) == 0) {
				return nil, duplicateKeyError(path, key, prev, keyNode.Line)
			}
			old, _ := explicit.Get(key)
			v = MergeItem(old, v)
		}
		lines[key] = keyNode.Line
		explicit.Set(key, v)
	}

	// Explicit keys override anything brought in through "<<".
	for _, k := range explicit.Keys() {
		v, _ := explicit.Get(k)
		merged.Set(k, v)
	}
	return merged, nil
}

// applyMergeKey folds the mapping (or list of mappings) referenced by a
// "<<" key into dst. Earlier sources win over later ones.
func (p parser) applyMergeKey(dst *Map, valNode *yaml.Node, path []string) error {
	v, err := p.value(valNode, path)
	if err != nil {
		return err
	}
	var sources []*Map
	switch val := v.(type) {
	case *Map:
		sources = []*Map{val}
	case []any:
		for _, item := range val {
			m, ok := item.(*Map)
			if !ok {
				return fmt.Errorf("line %d: merge key sequence must contain mappings", valNode.Line)
			}
			sources = append(sources, m)
		}
	default:
		return fmt.Errorf("line %d: merge key must reference a mapping", valNode.Line)
	}
	for _, src := range sources {
		for _, k := range src.Keys() {
			if dst.Has(k) {
				continue
			}
			sv, _ := src.Get(k)
			dst.Set(k, cloneValue(sv))
		}
	}
	return nil
}

func duplicateKeyError(path []string, key string, firstLine, line int) error {
	where := fmt.Sprintf("lines %d and %d", firstLine, line)
	if len(path) == 1 && designatorSections[path[0]] {
		return errs.DuplicateDesignator(key, path[0]+", "+where)
	}
	return &errs.Error{
		Kind:    errs.KindSchemaViolation,
		Message: fmt.Sprintf("%s: key %q defined twice (%s)", strings.Join(append(path, key), "."), key, where),
		Token:   key,
	}
}
