package cli

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/harvest/internal/cli/config"
	"github.com/leapstack-labs/harvest/internal/history"
	"github.com/leapstack-labs/harvest/internal/stub"
	"github.com/leapstack-labs/harvest/internal/task"
)

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	config.ResetConfig()

	root := NewRootCmd()
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), errb.String(), err
}

func startStubServer(t *testing.T) string {
	t.Helper()
	s := stub.NewServer(stub.Config{
		Logger:      slog.New(slog.DiscardHandler),
		DiscoverFor: 10 * time.Millisecond,
		StepEvery:   5 * time.Millisecond,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRoot_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "harvest v")
}

func TestExtract_PlainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HARVEST_POLL_INTERVAL", "20ms")
	serverURL := startStubServer(t)
	historyPath := filepath.Join(dir, "history.db")

	out, errOut, err := executeCommand(t,
		"extract", "battery", "cathodes",
		"-c", "Material", "-c", "Capacity",
		"-t", "TEXT", "-t", "NUMERIC",
		"--plain", "-o", "csv",
		"--server", serverURL,
		"--history", historyPath,
	)
	require.NoError(t, err)

	assert.Contains(t, errOut, "Found 5 tables")
	assert.Contains(t, out, "Patent,Table,Material,Capacity")
	assert.Contains(t, out, "US-10001-B2")

	store, err := history.Open(historyPath, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	entries, err := store.List(5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "completed", entries[0].Status)
	assert.Equal(t, 3, entries[0].ResultRows)
}

func TestExtract_RequiresColumn(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := executeCommand(t, "extract", "anything", "--server", "http://localhost:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--column")
}

func TestExtract_TrivialCompletion(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	serverURL := startStubServer(t)

	out, _, err := executeCommand(t,
		"extract", "query", "matching", "nothing",
		"-c", "A", "--plain",
		"--server", serverURL,
		"--history", filepath.Join(dir, "history.db"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ No relevant tables found")
}

func TestExtract_ServerRejectionSurfacesDetail(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	serverURL := startStubServer(t)

	_, _, err := executeCommand(t,
		"extract", "please", "reject", "me",
		"-c", "A", "--plain",
		"--server", serverURL,
		"--history", filepath.Join(dir, "history.db"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query too broad")
}

func TestStatus_UnknownTask(t *testing.T) {
	t.Chdir(t.TempDir())
	serverURL := startStubServer(t)

	out, _, err := executeCommand(t, "status", "no-such-task", "--server", serverURL)
	require.NoError(t, err)
	assert.Contains(t, out, "not_found")
}

func TestFetch_SavesArtifact(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	serverURL := startStubServer(t)

	// Drive a job to completion directly, then fetch it through the CLI.
	client := task.NewClient(serverURL, slog.New(slog.DiscardHandler))
	resp, err := client.Submit(context.Background(), task.SubmitRequest{
		Query:   "battery",
		Columns: []string{"Material"},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, err := client.Poll(context.Background(), resp.TaskID)
		require.NoError(t, err)
		return snap.Status == task.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	outFile := filepath.Join(dir, "result.csv")
	_, errOut, err := executeCommand(t, "fetch", resp.TaskID, "--server", serverURL, "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Saved artifact")
	assert.FileExists(t, outFile)
}

func TestHistory_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, _, err := executeCommand(t, "history", "--history", filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs recorded yet")
}
