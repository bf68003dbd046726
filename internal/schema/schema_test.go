package schema

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filare/internal/errs"
	"github.com/roach88/filare/internal/loader"
)

func parse(t *testing.T, text string) *loader.Map {
	t.Helper()
	m, err := loader.ParseMergeYAML(text)
	require.NoError(t, err)
	return m
}

func TestValidateAcceptsDocument(t *testing.T) {
	doc := parse(t, `
schema_version: 1
connectors:
  X1: {pincount: 2}
  X2:
cables:
  W1: {wirecount: 2, length: 1.5}
connections:
  - [{X1: [1, 2]}, {W1: "1-2"}, {X2: [1, 2]}]
metadata:
  title: Demo
options:
  template_separator: "."
notes: some text
additional_bom_items:
  - {description: Tape, qty: 2}
`)
	assert.NoError(t, Validate(doc, "demo.yml"))
}

func TestValidateEmptyDocument(t *testing.T) {
	assert.NoError(t, Validate(loader.NewMap(), "empty.yml"))
}

func TestValidateNullSectionsAreAbsent(t *testing.T) {
	doc := parse(t, "connectors:\ncables:\nmetadata:\n")
	assert.NoError(t, Validate(doc, "nulls.yml"))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown key", "wires: {}\n", "wires"},
		{"connectors not a mapping", "connectors: [X1]\n", "nulls.yml"},
		{"connection row not a list", "connections:\n  - {X1: 1}\n", "nulls.yml"},
		{"schema version zero", "schema_version: 0\n", "nulls.yml"},
		{"schema version string", "schema_version: one\n", "nulls.yml"},
		{"long separator", "options: {template_separator: '--'}\n", "nulls.yml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(parse(t, tt.text), "nulls.yml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrSchemaViolation), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckVersionWarnsOnNewer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.Equal(t, 1, CheckVersion(loader.NewMap(), "a.yml", logger))
	assert.Empty(t, buf.String())

	doc := loader.MapOf("schema_version", SupportedSchemaVersion+1)
	assert.Equal(t, SupportedSchemaVersion+1, CheckVersion(doc, "a.yml", logger))
	assert.Contains(t, buf.String(), "schema_version")
	assert.Contains(t, buf.String(), "a.yml")
}
