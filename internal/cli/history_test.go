package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filare/internal/store"
	"github.com/roach88/filare/internal/testutil"
)

type historyResponse struct {
	Status string        `json:"status"`
	Data   HistoryResult `json:"data"`
}

func TestBuild_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)
	db := filepath.Join(dir, "history", "builds.db")

	stdout, _, err := execute(t, "", "build", "-o", dir, "--db", db, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ recorded build ")
	_, _, err = execute(t, "", "build", "-o", dir, "--db", db, input)
	require.NoError(t, err)

	stdout, _, err = execute(t, "", "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	var resp historyResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Builds, 2)
	for _, b := range resp.Data.Builds {
		assert.Equal(t, []string{"demo"}, b.Harnesses)
		assert.Equal(t, 2, b.Entries)
		assert.Len(t, b.Fingerprint, 64)
	}
	assert.Equal(t, resp.Data.Builds[0].Fingerprint, resp.Data.Builds[1].Fingerprint)
	assert.NotEqual(t, resp.Data.Builds[0].ID, resp.Data.Builds[1].ID)
}

func TestHistory_Entry(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "builds.db")
	opts := &BuildOptions{now: testutil.NewStepClock().Now}

	for _, name := range []string{"demo.yml", "other.yml"} {
		input := writeInput(t, dir, name, demoDoc)
		cmd := newBuildCommand(&RootOptions{Format: "text"}, opts)
		_, _, err := executeCommand(cmd, "", "-o", dir, "--db", db, input)
		require.NoError(t, err)
	}

	s, err := store.Open(db)
	require.NoError(t, err)
	builds, err := s.ListBuilds(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 2)
	entries, err := s.ReadEntries(context.Background(), builds[0].ID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	stdout, _, err := execute(t, "", "history", "--db", db, "--entry", entries[0].Fingerprint)
	require.NoError(t, err)
	assert.Contains(t, stdout, "BUILD")
	assert.Contains(t, stdout, builds[0].ID)
	assert.Contains(t, stdout, builds[1].ID)
	assert.Contains(t, stdout, "2024-01-01T00:00:00Z")
	assert.Contains(t, stdout, "2024-01-01T00:00:01Z")
}

func TestHistory_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")

	stdout, _, err := execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "BUILD")
	assert.Contains(t, stdout, "FINGERPRINT")
}

func TestHistory_BadPath(t *testing.T) {
	_, _, err := execute(t, "", "history", "--db", "/nonexistent/dir/builds.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryResult_String(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := HistoryResult{Builds: []BuildSummary{{
		ID:          "build-0001",
		CreatedAt:   created,
		Fingerprint: "0123456789abcdef",
		Harnesses:   []string{"a", "b"},
		Entries:     3,
	}}}

	s := r.String()
	assert.Contains(t, s, "build-0001")
	assert.Contains(t, s, "a,b")
	assert.Contains(t, s, "0123456789ab")
	assert.NotContains(t, s, "0123456789abc")
}

func TestHistory_Prune(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "demo.yml", demoDoc)
	db := filepath.Join(dir, "builds.db")

	for range 3 {
		_, _, err := execute(t, "", "build", "-o", dir, "--db", db, input)
		require.NoError(t, err)
	}

	stdout, _, err := execute(t, "", "--format", "json", "history", "--db", db, "--prune", "1")
	require.NoError(t, err)

	var resp historyResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Data.Builds, 1)
}
