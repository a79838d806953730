// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher records fetch calls and returns canned results.
type fakeFetcher struct {
	calls []string
	dir   string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, destName string) (string, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, destName)
	if err := os.WriteFile(path, []byte("binary"), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindConfigFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yml := writeConfig(t, dir, "a.yml", "")
	yaml := writeConfig(t, dir, "b.yaml", "")
	jsn := writeConfig(t, dir, "c.json", "")
	tml := writeConfig(t, dir, "d.toml", "")
	writeConfig(t, dir, "ignored.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	files, err := FindConfigFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{yml, yaml, jsn, tml}, files)
}

func TestLoad_YAMLEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "cmds.yaml", `
- bin_path: /usr/local/bin/deploy
  help: deploy things
  timeout: 45
  env_vars:
    REGION: us-east-1
  channel: "#ops"
- bin_path: /usr/local/bin/Restart Service
`)

	l := New(&fakeFetcher{dir: t.TempDir()})
	got := l.Load(context.Background(), []string{filepath.Join(dir, "cmds.yaml")})

	require.Len(t, got, 2)

	deploy := got["deploy"]
	require.NotNil(t, deploy)
	assert.Equal(t, "/usr/local/bin/deploy", deploy.BinPath)
	assert.Equal(t, "deploy things", deploy.Help)
	assert.Equal(t, 45*time.Second, deploy.Timeout)
	assert.Equal(t, map[string]string{"REGION": "us-east-1"}, deploy.EnvVars)
	assert.Equal(t, "#ops", deploy.Extra["channel"], "unknown fields pass through")

	assert.Contains(t, got, "restart_service", "file-name component is canonicalized")
}

func TestLoad_JSONAndTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "cmds.json", `[{"bin_path": "/bin/backup", "name": "Nightly Backup"}]`)
	writeConfig(t, dir, "cmds.toml", `
[[commands]]
bin_path = "/bin/report"
timeout = 10
`)

	l := New(&fakeFetcher{dir: t.TempDir()})
	got := l.Load(context.Background(), []string{
		filepath.Join(dir, "cmds.json"),
		filepath.Join(dir, "cmds.toml"),
	})

	require.Len(t, got, 2)
	assert.Contains(t, got, "nightly_backup")
	require.Contains(t, got, "report")
	assert.Equal(t, 10*time.Second, got["report"].Timeout)
}

func TestLoad_BrokenFileContributesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "bad.yaml", "just a scalar, not a sequence")
	writeConfig(t, dir, "good.yaml", "- bin_path: /bin/ok\n")
	writeConfig(t, dir, "mapping.json", `{"bin_path": "/bin/notalist"}`)

	l := New(&fakeFetcher{dir: t.TempDir()})
	got := l.Load(context.Background(), []string{
		filepath.Join(dir, "bad.yaml"),
		filepath.Join(dir, "good.yaml"),
		filepath.Join(dir, "mapping.json"),
	})

	assert.Len(t, got, 1, "only the valid file contributes entries")
	assert.Contains(t, got, "ok")
}

func TestLoad_EntryDiscardRules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "cmds.yaml", `
- help: no bin_path and no url
- url: https://example.com/tool
- url: ftp://example.com/tool
  name: badscheme
- bin_path: /bin/kept
`)

	fetcher := &fakeFetcher{dir: t.TempDir()}
	l := New(fetcher)
	got := l.Load(context.Background(), []string{filepath.Join(dir, "cmds.yaml")})

	assert.Len(t, got, 1)
	assert.Contains(t, got, "kept")
	assert.Empty(t, fetcher.calls, "no fetch for discarded entries")
}

func TestLoad_URLEntryFetched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "cmds.yaml", `
- url: https://x/fakefile
  name: testdl
`)

	fetcher := &fakeFetcher{dir: t.TempDir()}
	l := New(fetcher)
	got := l.Load(context.Background(), []string{filepath.Join(dir, "cmds.yaml")})

	require.Contains(t, got, "testdl")
	desc := got["testdl"]
	assert.FileExists(t, desc.BinPath)
	assert.Equal(t, []string{"https://x/fakefile"}, fetcher.calls)

	data, err := os.ReadFile(desc.BinPath)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestLoad_FetchFailureDiscardsOnlyThatEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "cmds.yaml", `
- url: https://x/broken
  name: broken
- bin_path: /bin/survivor
`)

	l := New(&fakeFetcher{dir: t.TempDir(), err: errors.New("http 500")})
	got := l.Load(context.Background(), []string{filepath.Join(dir, "cmds.yaml")})

	assert.Len(t, got, 1)
	assert.Contains(t, got, "survivor")
	assert.NotContains(t, got, "broken")
}

func TestLoad_DuplicateNamesMergeLastWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeConfig(t, dir, "a.yaml", `
- bin_path: /bin/dd
  name: backup
  help: "A"
  env_vars:
    KEEP: "yes"
`)
	second := writeConfig(t, dir, "b.yaml", `
- bin_path: /bin/dd
  name: backup
  help: "B"
`)

	l := New(&fakeFetcher{dir: t.TempDir()})
	got := l.Load(context.Background(), []string{first, second})

	require.Contains(t, got, "backup")
	desc := got["backup"]
	assert.Equal(t, "B", desc.Help, "field-level override, later file wins")
	assert.Equal(t, "yes", desc.EnvVars["KEEP"], "fields unique to the earlier entry survive")
}

func TestLoad_UnusableInputYieldsEmptyMapping(t *testing.T) {
	t.Parallel()

	l := New(&fakeFetcher{dir: t.TempDir()})

	assert.Empty(t, l.Load(context.Background(), nil))
	assert.Empty(t, l.Load(context.Background(), []string{filepath.Join(t.TempDir(), "missing.yaml")}))
}
