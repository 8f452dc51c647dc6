package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	// git repo with a nested package that is skipped by default
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web", ".git"), 0o755))
	writeFile(t, filepath.Join(root, "web", "package.json"), `{"name": " web-app "}`)
	writeFile(t, filepath.Join(root, "web", "packages", "ui", "package.json"), `{"name":"ui"}`)
	// non-git projects
	writeFile(t, filepath.Join(root, "svc", "go.mod"), "module example.com/svc\n\ngo 1.22\n")
	writeFile(t, filepath.Join(root, "svc", "Makefile"), "all:\n")
	writeFile(t, filepath.Join(root, "crate", "Cargo.toml"), "[package]\nname = \"crab\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(root, "py", "pyproject.toml"), "[project]\nname = \"snake\"\n")
	writeFile(t, filepath.Join(root, "legacy", "requirements.txt"), "flask\n")
	// ignored
	writeFile(t, filepath.Join(root, "node_modules", "dep", "package.json"), `{"name":"dep"}`)
	// submodule-style .git file
	writeFile(t, filepath.Join(root, "sub", ".git"), "gitdir: ../.git/modules/sub\n")
	return root
}

func TestDiscover_Defaults(t *testing.T) {
	root := workspace(t)
	got, err := Discover(context.Background(), []string{root}, DefaultOptions())
	require.NoError(t, err)

	byRoot := map[string]Project{}
	var order []string
	for _, p := range got.Projects {
		byRoot[p.Root] = p
		order = append(order, p.Root)
	}

	assert.Equal(t, []string{"crate", "legacy", "py", "sub", "svc", "web"}, order)
	assert.Equal(t, "crab", byRoot["crate"].Name)
	assert.Equal(t, "snake", byRoot["py"].Name)
	assert.Equal(t, "example.com/svc", byRoot["svc"].Name)
	assert.Equal(t, "web-app", byRoot["web"].Name)
	assert.Equal(t, "legacy", byRoot["legacy"].Name)
	assert.True(t, byRoot["web"].Git)
	assert.True(t, byRoot["sub"].Git)
	assert.Equal(t, []Tag{}, byRoot["sub"].Tags)
	assert.Equal(t, []string{"Makefile", "go.mod"}, byRoot["svc"].Manifests)
	assert.Equal(t, []Tag{TagGo, TagBuild}, byRoot["svc"].Tags)

	assert.Equal(t, 6, got.Stats.ProjectsFound)
	assert.False(t, got.Stats.Truncated)
	assert.Equal(t, 4, got.Stats.MaxDepth)
}

func TestDiscover_Nested(t *testing.T) {
	root := workspace(t)
	opts := DefaultOptions()
	opts.IncludeNested = true
	got, err := Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)

	var roots []string
	for _, p := range got.Projects {
		roots = append(roots, p.Root)
	}
	assert.Contains(t, roots, "web/packages/ui")
}

func TestDiscover_GitOnly(t *testing.T) {
	root := workspace(t)
	opts := DefaultOptions()
	opts.IncludeNonGit = false
	got, err := Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	require.Len(t, got.Projects, 2)
	assert.Equal(t, "sub", got.Projects[0].Root)
	assert.Equal(t, "web", got.Projects[1].Root)
}

func TestDiscover_Limits(t *testing.T) {
	root := workspace(t)

	opts := DefaultOptions()
	opts.MaxProjects = 2
	got, err := Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	assert.Len(t, got.Projects, 2)
	assert.True(t, got.Stats.Truncated)

	opts = DefaultOptions()
	opts.MaxDirs = 1
	got, err = Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.DirsScanned)
	assert.True(t, got.Stats.Truncated)

	opts = DefaultOptions()
	opts.MaxDepth = 0
	got, err = Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	assert.Empty(t, got.Projects)
	assert.False(t, got.Stats.Truncated)
}

func TestDiscover_RootIsProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/top\n")
	got, err := Discover(context.Background(), []string{root}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, ".", got.Projects[0].Root)
	assert.Equal(t, "example.com/top", got.Projects[0].Name)
}

func TestInferName_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": 42}`)
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "not = [valid")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	byName := map[string]os.DirEntry{}
	for _, e := range entries {
		byName[e.Name()] = e
	}
	assert.Equal(t, "leaf", InferName(dir, "some/leaf", byName))
	assert.Equal(t, filepath.Base(dir), InferName(dir, ".", byName))
}
