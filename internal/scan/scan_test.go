package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnumerate_BreadthFirstAndIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), "c")
	writeFile(t, filepath.Join(root, "sub", "d.txt"), "d")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(root, "node_modules", "x", "index.js"), "x")

	got, err := Enumerate(context.Background(), []string{root}, Budget{MaxFiles: 100}, nil)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "d.txt"),
		filepath.Join(root, "sub", "deep", "c.txt"),
	}
	assert.Equal(t, want, got.Files)
	assert.False(t, got.Truncated)
}

func TestEnumerate_MaxFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%02d.go", i)), "x")
	}

	got, err := Enumerate(context.Background(), []string{root}, Budget{MaxFiles: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, got.Files, 3)
	assert.True(t, got.Truncated)
}

func TestEnumerate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Enumerate(ctx, []string{t.TempDir()}, Budget{MaxFiles: 10}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnumerate_MissingRoot(t *testing.T) {
	got, err := Enumerate(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, Budget{MaxFiles: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Files)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.go")
	b := filepath.Join(root, "b.go")
	writeFile(t, a, "type FooService struct{}")
	writeFile(t, b, "package other")

	res, err := Search(context.Background(), []string{a, b}, []string{" fooservice "}, Budget{MaxBytes: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, res.Matches)
	assert.Equal(t, 2, res.FilesScanned)
	assert.False(t, res.Truncated)
}

func TestSearch_NoNeedles(t *testing.T) {
	res, err := Search(context.Background(), []string{"x"}, []string{"  "}, Budget{MaxBytes: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Zero(t, res.FilesScanned)
	assert.False(t, res.Truncated)
}

func TestSearch_ByteBudget(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "big.txt")
	small1 := filepath.Join(root, "s1.txt")
	small2 := filepath.Join(root, "s2.txt")
	small3 := filepath.Join(root, "s3.txt")
	writeFile(t, big, strings.Repeat("needle ", 100))
	writeFile(t, small1, "needle 1")
	writeFile(t, small2, "needle 2")
	writeFile(t, small3, "needle 3")

	res, err := Search(context.Background(), []string{big, small1, small2, small3}, []string{"needle"}, Budget{MaxBytes: 16})
	require.NoError(t, err)
	// big is skipped outright; s3 would overflow the running total.
	assert.Equal(t, []string{small1, small2}, res.Matches)
	assert.Equal(t, int64(16), res.BytesRead)
	assert.True(t, res.Truncated)
}

func TestSearch_SkippedFilesAreNotTruncation(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	writeFile(t, a, "needle")

	res, err := Search(context.Background(), []string{a, filepath.Join(root, "gone.txt"), root}, []string{"needle"}, Budget{MaxBytes: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, res.Matches)
	assert.Equal(t, 1, res.FilesScanned)
	assert.False(t, res.Truncated, "unreadable and non-regular candidates are not a budget stop")
}

func TestSearch_OversizeOnlyIsTruncated(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "big.txt")
	writeFile(t, big, strings.Repeat("needle ", 10))

	res, err := Search(context.Background(), []string{big}, []string{"needle"}, Budget{MaxBytes: 16})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.True(t, res.Truncated)
}

func TestSearch_MaxMatches(t *testing.T) {
	root := t.TempDir()
	var files []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(root, fmt.Sprintf("m%d.txt", i))
		writeFile(t, p, "hit")
		files = append(files, p)
	}

	res, err := Search(context.Background(), files, []string{"hit"}, Budget{MaxBytes: 1 << 20, MaxMatches: 2})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
	assert.True(t, res.Truncated)
}

func TestMatchLinesAndSnippet(t *testing.T) {
	lines := SplitLines("one\r\nTwo Foo\nthree\nfour foo\n")
	hits := MatchLines(lines, []string{"FOO"})
	require.Len(t, hits, 2)
	assert.Equal(t, LineHit{Line: 2, Text: "Two Foo"}, hits[0])
	assert.Equal(t, 4, hits[1].Line)

	assert.Equal(t, "Two Foo", Snippet(lines, 1, 0))
	assert.Equal(t, "one\nTwo Foo\nthree", Snippet(lines, 1, 1))
	assert.Equal(t, "one\nTwo Foo", Snippet(lines, 0, 1))
}

func TestReader(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "f.txt")
	writeFile(t, p, "12345")

	r := NewReader(8)
	data, status := r.ReadFile(p)
	assert.Equal(t, ReadOK, status)
	assert.Equal(t, "12345", string(data))

	_, status = r.ReadFile(p)
	assert.Equal(t, ReadStop, status)

	_, status = r.ReadFile(filepath.Join(root, "missing"))
	assert.Equal(t, ReadSkip, status)
	_, status = r.ReadFile(root)
	assert.Equal(t, ReadSkip, status)
	assert.False(t, r.Exhausted())
	assert.True(t, r.Truncated())
	assert.True(t, r.BudgetHit())
}

func TestReader_Oversize(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "big.txt")
	writeFile(t, p, "0123456789")

	r := NewReader(4)
	_, status := r.ReadFile(p)
	assert.Equal(t, ReadOversize, status)
	assert.Zero(t, r.Used())
	assert.True(t, r.Truncated())

	clean := NewReader(4)
	_, status = clean.ReadFile(filepath.Join(root, "missing"))
	assert.Equal(t, ReadSkip, status)
	assert.False(t, clean.BudgetHit())
}
