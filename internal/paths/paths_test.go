package paths

import (
	"path/filepath"
	"testing"

	"subagents/internal/errors"
)

func TestIsWithin(t *testing.T) {
	root := filepath.FromSlash("/work/repo")
	tests := []struct {
		path string
		want bool
	}{
		{"/work/repo", true},
		{"/work/repo/src/a.go", true},
		{"/work/repo/../repo/x", true},
		{"/work/repository", false},
		{"/work", false},
		{"/work/repo/../other", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsWithin(filepath.FromSlash(tt.path), root); got != tt.want {
				t.Errorf("IsWithin(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRel(t *testing.T) {
	root := filepath.FromSlash("/work/repo")
	got := Rel(root, filepath.Join(root, "src", "pkg", "a.go"))
	if got != "src/pkg/a.go" {
		t.Errorf("Rel() = %q, want src/pkg/a.go", got)
	}
}

func TestResolve(t *testing.T) {
	root := filepath.FromSlash("/work/repo")
	abs, ok := Resolve(root, "src/a.go")
	if !ok || abs != filepath.Join(root, "src", "a.go") {
		t.Errorf("Resolve() = %q, %v", abs, ok)
	}
	if _, ok := Resolve(root, "../../etc/passwd"); ok {
		t.Error("Resolve() should reject escaping references")
	}
}

func TestResolveRoots(t *testing.T) {
	base := t.TempDir()
	allowed := []string{filepath.Join(base, "b"), filepath.Join(base, "a")}

	t.Run("nil request uses allowed", func(t *testing.T) {
		got, err := ResolveRoots(allowed, nil, base)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != allowed[1] || got[1] != allowed[0] {
			t.Errorf("ResolveRoots() = %v", got)
		}
	})

	t.Run("relative subdir deduplicated", func(t *testing.T) {
		got, err := ResolveRoots(allowed, []string{"a/src", filepath.Join(base, "a", "src"), "b"}, base)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{filepath.Join(base, "a", "src"), filepath.Join(base, "b")}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("ResolveRoots() = %v, want %v", got, want)
		}
	})

	t.Run("outside root rejected", func(t *testing.T) {
		_, err := ResolveRoots(allowed, []string{"a", "c"}, base)
		if errors.CodeOf(err) != errors.RootNotAllowed {
			t.Errorf("ResolveRoots() error = %v, want ROOT_NOT_ALLOWED", err)
		}
	})

	t.Run("empty request yields empty", func(t *testing.T) {
		got, err := ResolveRoots(allowed, []string{}, base)
		if err != nil || len(got) != 0 {
			t.Errorf("ResolveRoots() = %v, %v", got, err)
		}
	})
}
