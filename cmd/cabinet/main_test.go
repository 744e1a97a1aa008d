package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cabinet/internal/config"
	"cabinet/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs the CLI against an isolated config file and returns stdout
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, "cabinet %s", strings.Join(args, " "))
	return out
}

func isolatedConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(config.ConfigPathEnv, path)
	t.Setenv("CABINET_LOG_LEVEL", "error")
	return path
}

func addFilesystemCabinet(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	mustRun(t, "config", "set", "cabinets."+name+".type", "filesystem")
	mustRun(t, "config", "set", "cabinets."+name+".config.root", root)
	return root
}

func writeLocal(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o640))
	return p
}

func TestConfigCommands(t *testing.T) {
	path := isolatedConfig(t)

	out := mustRun(t, "config", "list")
	assert.Contains(t, out, "No configuration values set")

	mustRun(t, "config", "set", "cabinets.Media.type", "s3")
	mustRun(t, "config", "set", "cabinets.media.config.bucket", "assets")

	out = mustRun(t, "config", "get", "cabinets.media.type")
	assert.Equal(t, "cabinets.media.type = s3\n", out)

	out = mustRun(t, "config", "get", "cabinets.media")
	assert.Contains(t, out, "cabinets.media.config.bucket")

	out = mustRun(t, "config", "list")
	assert.Contains(t, out, "cabinets.media.config.bucket")
	assert.Contains(t, out, "assets")

	out = mustRun(t, "config", "list", "-o", "yaml")
	assert.Contains(t, out, "cabinets.media.type: s3")

	assert.Equal(t, path+"\n", mustRun(t, "config", "path"))

	_, err := run(t, "", "config", "set", "media.type", "s3")
	assert.Error(t, err)

	mustRun(t, "config", "delete", "cabinets.media")
	_, err = run(t, "", "config", "get", "cabinets.media.type")
	assert.Error(t, err)
}

func TestCabinetsCommand(t *testing.T) {
	isolatedConfig(t)

	out := mustRun(t, "cabinets")
	assert.Contains(t, out, "No cabinets configured")

	addFilesystemCabinet(t, "docs")
	mustRun(t, "config", "set", "cabinets.media.type", "s3")

	out = mustRun(t, "cabinets")
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "not ready")
}

func TestItemLifecycle(t *testing.T) {
	isolatedConfig(t)
	root := addFilesystemCabinet(t, "docs")
	local := t.TempDir()
	src := writeLocal(t, local, "q1.txt", "quarterly")

	out := mustRun(t, "put", "docs", "reports/q1.txt", src)
	assert.Contains(t, out, "1 succeeded, 0 failed")
	assert.FileExists(t, filepath.Join(root, "reports", "q1.txt"))

	out = mustRun(t, "put", "docs", "reports/q1.txt", src, "--on-existing", "skip")
	assert.Contains(t, out, "skipped")

	_, err := run(t, "", "put", "docs", "reports/q1.txt", src, "--on-existing", "throw")
	assert.Error(t, err)

	out = mustRun(t, "ls", "docs")
	assert.Contains(t, out, "reports/")

	out = mustRun(t, "ls", "docs", "reports", "-o", "yaml")
	assert.Contains(t, out, "key: reports/q1.txt")
	assert.Contains(t, out, "size: 9")

	out = mustRun(t, "stat", "docs", "reports/q1.txt")
	assert.Contains(t, out, "9 bytes")

	assert.Equal(t, "true\n", mustRun(t, "exists", "docs", "reports/q1.txt"))
	assert.Equal(t, "false\n", mustRun(t, "exists", "docs", "reports/q2.txt"))

	dest := filepath.Join(local, "copy.txt")
	mustRun(t, "get", "docs", "reports/q1.txt", dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "quarterly", string(data))

	mustRun(t, "mv", "docs", "reports/q1.txt", "archive/q1.txt")
	assert.FileExists(t, filepath.Join(root, "archive", "q1.txt"))

	_, err = run(t, "", "mv", "docs", "archive/q1.txt", "x.txt", "--on-existing", "skip")
	assert.ErrorIs(t, err, storage.ErrNotImplemented)

	assert.Equal(t, "docs: 9 B (9 bytes)\n", mustRun(t, "usage", "docs"))

	out, err = run(t, "nope\n", "rm", "docs", "archive/q1.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Deletion cancelled")
	assert.FileExists(t, filepath.Join(root, "archive", "q1.txt"))

	out, err = run(t, "archive/q1.txt\n", "rm", "docs", "archive/q1.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")
	assert.NoFileExists(t, filepath.Join(root, "archive", "q1.txt"))

	mustRun(t, "rm", "docs", "archive/q1.txt", "--force")
}

func TestPutSeveralSources(t *testing.T) {
	isolatedConfig(t)
	root := addFilesystemCabinet(t, "docs")
	local := t.TempDir()
	a := writeLocal(t, local, "a.txt", "a")
	b := writeLocal(t, local, "b.txt", "bb")

	out, err := run(t, "", "put", "docs", "inbox", a, b, filepath.Join(local, "missing.txt"))
	assert.EqualError(t, err, "1 of 3 items failed")
	assert.Contains(t, out, "2 succeeded, 1 failed")
	assert.FileExists(t, filepath.Join(root, "inbox", "a.txt"))
	assert.FileExists(t, filepath.Join(root, "inbox", "b.txt"))

	// Sources given on the command line are never removed
	assert.FileExists(t, a)
}

func TestMigrateCommand(t *testing.T) {
	isolatedConfig(t)
	docs := addFilesystemCabinet(t, "docs")
	archive := addFilesystemCabinet(t, "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "logs"), 0o750))
	writeLocal(t, filepath.Join(docs, "logs"), "one.log", "1")
	writeLocal(t, filepath.Join(docs, "logs"), "two.log", "2")

	out := mustRun(t, "migrate", "docs", "archive", "logs", "--delete-source")
	assert.Contains(t, out, "2 succeeded, 0 failed")
	assert.FileExists(t, filepath.Join(archive, "logs", "one.log"))
	assert.NoFileExists(t, filepath.Join(docs, "logs", "one.log"))

	out = mustRun(t, "migrate", "docs", "archive", "logs")
	assert.Contains(t, out, "Nothing to migrate")
}

func TestBrokenConfigOnlyBlocksCabinetCommands(t *testing.T) {
	isolatedConfig(t)
	mustRun(t, "config", "set", "cabinets.docs.config.root", t.TempDir())

	_, err := run(t, "", "ls", "docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	mustRun(t, "config", "set", "cabinets.docs.type", "filesystem")
	mustRun(t, "ls", "docs")
}

func TestUnsupportedOutput(t *testing.T) {
	isolatedConfig(t)
	_, err := run(t, "", "cabinets", "-o", "json")
	assert.Error(t, err)
}

func TestFlattenSettings(t *testing.T) {
	flat := flattenSettings("", map[string]any{
		"cabinets": map[string]any{
			"docs": map[string]any{
				"type":   "filesystem",
				"config": map[string]any{"root": "/srv", "key_prefix": "", "create_root": true},
			},
			"empty": nil,
		},
	})
	assert.Equal(t, map[string]any{
		"cabinets.docs.type":               "filesystem",
		"cabinets.docs.config.root":        "/srv",
		"cabinets.docs.config.create_root": true,
	}, flat)
}
