package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_WritesHarnessBOM(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)
	out := filepath.Join(dir, "out")

	stdout, _, err := execute(t, "", "build", "-o", out, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ demo -> ")

	data, err := os.ReadFile(filepath.Join(out, "demo.bom.tsv"))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "demo_bom", data)

	_, err = os.Stat(filepath.Join(out, SharedBOMFile))
	assert.True(t, os.IsNotExist(err), "shared BOM written without --shared-bom")
}

func TestBuild_Filter(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)

	_, _, err := execute(t, "", "build", "-o", dir, "--filter", input)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "demo.bom.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Connector, 1 pin")
	assert.NotContains(t, string(data), "Cable", "zero-quantity cable kept")
}

func TestBuild_MetadataOutputName(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)
	meta := writeInput(t, dir, "meta.yml", "output_name: renamed\ntitle: Demo\n")

	_, _, err := execute(t, "", "build", "-o", dir, "-m", meta, input)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "renamed.bom.tsv"))
	assert.NoError(t, err)
}

func TestBuild_Prepend(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "common.yml", "connectors:\n  X1: &onepin {pincount: 1}\n")
	input := writeInput(t, dir, "demo.yml", `
connectors:
  X2: *onepin
cables:
  C1: {wirecount: 1}
connections:
  - [{X1: 1}, {C1: 1}, {X2: 1}]
`)

	_, _, err := execute(t, "", "build", "-o", dir, "-p", "common.yml", input)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "demo.bom.tsv"))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "demo_bom", data)
}

func TestBuild_SharedBOMWithMultipliers(t *testing.T) {
	dir := t.TempDir()
	demo := writeInput(t, dir, "demo.yml", demoDoc)
	other := writeInput(t, dir, "other.yml", demoDoc)
	writeInput(t, dir, "quantity_multipliers.txt", `{"demo": 1, "other": 2}`)

	stdout, _, err := execute(t, "",
		"build", "-o", dir, "--shared-bom", "--use-qty-multipliers", demo, other)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ shared BOM -> ")

	data, err := os.ReadFile(filepath.Join(dir, SharedBOMFile))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "shared_bom", data)
}

func TestBuild_PromptSavesMultipliers(t *testing.T) {
	dir := t.TempDir()
	demo := writeInput(t, dir, "demo.yml", demoDoc)
	other := writeInput(t, dir, "other.yml", demoDoc)

	_, stderr, err := execute(t, "0\n2\n3\n",
		"build", "-o", dir, "--use-qty-multipliers", "--prompt", demo, other)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Quantity multiplier for demo")
	assert.Contains(t, stderr, "Please enter a positive integer.")

	data, err := os.ReadFile(filepath.Join(dir, "quantity_multipliers.txt"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"demo\": 2,\n  \"other\": 3\n}\n", string(data))
}

func TestBuild_MissingMultiplier(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)

	stdout, _, err := execute(t, "", "build", "-o", dir, "--use-qty-multipliers", input)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [FILARE_TOOLS]")
	assert.Contains(t, stdout, "--prompt")
}

func TestBuild_InvalidMultiplierFile(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)
	writeInput(t, dir, "quantity_multipliers.txt", "not json")

	stdout, _, err := execute(t, "", "build", "-o", dir, "--use-qty-multipliers", input)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Invalid format")
}

func TestBuild_InvalidDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "bad.yml", "connectors:\n  X1: {}\ncables:\n  X1: {}\n")

	stdout, _, err := execute(t, "", "--format", "json", "build", "-o", dir, input)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DUPLICATE_DESIGNATOR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "X1")
}

func TestBuild_MissingInput(t *testing.T) {
	stdout, _, err := execute(t, "", "build", "-o", t.TempDir(), "does-not-exist.yml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "FILE_RESOLUTION")
}

func TestBuild_JSONResult(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)

	stdout, _, err := execute(t, "", "--format", "json", "build", "-o", dir, input)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Harnesses, 1)
	assert.Equal(t, "demo", resp.Data.Harnesses[0].Name)
	assert.Equal(t, 2, resp.Data.Harnesses[0].Entries)
	assert.Empty(t, resp.Data.BuildID)
}

func TestBuildOptions_DBPath(t *testing.T) {
	assert.Equal(t, "", (&BuildOptions{}).dbPath())
	assert.Equal(t, "x.db", (&BuildOptions{DB: "x.db", Record: true}).dbPath())
	assert.Equal(t, DefaultDBPath(), (&BuildOptions{Record: true}).dbPath())
}
