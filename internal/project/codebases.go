// Package project discovers codebases under the allowed roots from .git
// markers and common manifest files. It never reads source contents.
package project

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"subagents/internal/paths"
)

// Tag identifies the ecosystem a manifest belongs to.
type Tag string

const (
	TagNode   Tag = "node"
	TagPython Tag = "python"
	TagRust   Tag = "rust"
	TagGo     Tag = "go"
	TagRuby   Tag = "ruby"
	TagJava   Tag = "java"
	TagCpp    Tag = "cpp"
	TagBuild  Tag = "build"
)

// Manifests are checked in this order; tags keep first-seen order.
var Manifests = []struct {
	File string
	Tag  Tag
}{
	{"package.json", TagNode},
	{"pyproject.toml", TagPython},
	{"requirements.txt", TagPython},
	{"Pipfile", TagPython},
	{"poetry.lock", TagPython},
	{"Cargo.toml", TagRust},
	{"go.mod", TagGo},
	{"Gemfile", TagRuby},
	{"pom.xml", TagJava},
	{"build.gradle", TagJava},
	{"CMakeLists.txt", TagCpp},
	{"Makefile", TagBuild},
}

// Ignores are directory names never descended into.
var Ignores = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	".cache":       true,
	".DS_Store":    true,
	"dist":         true,
	"build":        true,
	".test-tmp":    true,
	"artifacts":    true,
	".subagents":   true,
}

// Options bound one discovery walk.
type Options struct {
	MaxDepth      int  `json:"maxDepth"`
	MaxDirs       int  `json:"maxDirs"`
	MaxProjects   int  `json:"maxProjects"`
	IncludeNonGit bool `json:"includeNonGit"`
	IncludeNested bool `json:"includeNested"`
}

// DefaultOptions returns the discovery defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:      4,
		MaxDirs:       20_000,
		MaxProjects:   500,
		IncludeNonGit: true,
		IncludeNested: false,
	}
}

// Project is one discovered codebase.
type Project struct {
	Root      string   `json:"root"`
	Git       bool     `json:"git"`
	Tags      []Tag    `json:"tags"`
	Manifests []string `json:"manifests"`
	Name      string   `json:"name"`
}

// Stats describes the walk.
type Stats struct {
	DirsScanned   int  `json:"dirsScanned"`
	ProjectsFound int  `json:"projectsFound"`
	Truncated     bool `json:"truncated"`
	MaxDepth      int  `json:"maxDepth"`
	MaxDirs       int  `json:"maxDirs"`
	MaxProjects   int  `json:"maxProjects"`
}

// Listing is the discovery result.
type Listing struct {
	RootsSearched []string  `json:"rootsSearched"`
	Projects      []Project `json:"projects"`
	Stats         Stats     `json:"stats"`
}

type queued struct {
	dir   string
	depth int
}

// Discover walks roots breadth-first. A directory is a project when it has
// a .git entry, or, with IncludeNonGit, at least one manifest. Git projects
// are not descended into unless IncludeNested is set.
func Discover(ctx context.Context, roots []string, opts Options) (*Listing, error) {
	queue := make([]queued, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, queued{dir: filepath.Clean(r)})
	}
	seen := make(map[string]bool)
	found := make(map[string]bool)
	listing := &Listing{RootsSearched: roots, Projects: []Project{}}
	st := &listing.Stats

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if st.DirsScanned >= opts.MaxDirs || len(listing.Projects) >= opts.MaxProjects {
			st.Truncated = true
			break
		}
		item := queue[0]
		queue = queue[1:]
		if seen[item.dir] {
			continue
		}
		seen[item.dir] = true
		st.DirsScanned++

		entries, err := os.ReadDir(item.dir)
		if err != nil {
			continue
		}
		byName := make(map[string]os.DirEntry, len(entries))
		for _, e := range entries {
			byName[e.Name()] = e
		}

		hasGit := isGitRepo(byName)
		var manifests []string
		var tags []Tag
		seenTag := map[Tag]bool{}
		for _, m := range Manifests {
			if e, ok := byName[m.File]; ok && e.Type().IsRegular() {
				manifests = append(manifests, m.File)
				if !seenTag[m.Tag] {
					seenTag[m.Tag] = true
					tags = append(tags, m.Tag)
				}
			}
		}

		if hasGit || (opts.IncludeNonGit && len(manifests) > 0) {
			rel := workspaceRelative(item.dir, roots)
			if !found[rel] {
				found[rel] = true
				sort.Strings(manifests)
				if tags == nil {
					tags = []Tag{}
				}
				if manifests == nil {
					manifests = []string{}
				}
				listing.Projects = append(listing.Projects, Project{
					Root:      rel,
					Git:       hasGit,
					Tags:      tags,
					Manifests: manifests,
					Name:      InferName(item.dir, rel, byName),
				})
			}
		}

		if item.depth >= opts.MaxDepth || (hasGit && !opts.IncludeNested) {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || Ignores[e.Name()] {
				continue
			}
			queue = append(queue, queued{dir: filepath.Join(item.dir, e.Name()), depth: item.depth + 1})
		}
	}

	sort.Slice(listing.Projects, func(i, j int) bool {
		return listing.Projects[i].Root < listing.Projects[j].Root
	})
	st.ProjectsFound = len(listing.Projects)
	st.MaxDepth = opts.MaxDepth
	st.MaxDirs = opts.MaxDirs
	st.MaxProjects = opts.MaxProjects
	return listing, nil
}

func isGitRepo(byName map[string]os.DirEntry) bool {
	e, ok := byName[".git"]
	if !ok {
		return false
	}
	// Worktrees and submodules use a .git file.
	return e.IsDir() || e.Type().IsRegular()
}

func workspaceRelative(dir string, roots []string) string {
	for _, root := range roots {
		if paths.IsWithin(dir, root) {
			return paths.Rel(root, dir)
		}
	}
	return dir
}
