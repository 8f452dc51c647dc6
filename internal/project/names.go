package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

const (
	maxManifestBytes = 256 * 1024
	maxTOMLBytes     = 64 * 1024
)

// InferName prefers an explicit manifest name and falls back to the
// directory's base name.
func InferName(dir, rel string, byName map[string]os.DirEntry) string {
	has := func(name string) bool {
		e, ok := byName[name]
		return ok && e.Type().IsRegular()
	}

	if has("package.json") {
		if name := packageJSONName(filepath.Join(dir, "package.json")); name != "" {
			return name
		}
	}
	if has("Cargo.toml") {
		if name := tomlName(filepath.Join(dir, "Cargo.toml"), "package"); name != "" {
			return name
		}
	}
	if has("pyproject.toml") {
		if name := tomlName(filepath.Join(dir, "pyproject.toml"), "project", "tool.poetry"); name != "" {
			return name
		}
	}
	if has("go.mod") {
		if name := goModuleName(filepath.Join(dir, "go.mod")); name != "" {
			return name
		}
	}

	if rel == "." || rel == "" {
		return filepath.Base(dir)
	}
	return filepath.Base(filepath.FromSlash(rel))
}

func readSmall(path string, max int64) []byte {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > max {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

func packageJSONName(path string) string {
	data := readSmall(path, maxManifestBytes)
	if data == nil {
		return ""
	}
	var pkg struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	s, _ := pkg.Name.(string)
	return strings.TrimSpace(s)
}

// tomlName looks up name under each dotted table in order, then at top level.
func tomlName(path string, tables ...string) string {
	data := readSmall(path, maxTOMLBytes)
	if data == nil {
		return ""
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return ""
	}
	for _, table := range tables {
		node := doc
		for _, key := range strings.Split(table, ".") {
			next, ok := node[key].(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = next
		}
		if node == nil {
			continue
		}
		if s, ok := node["name"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if s, ok := doc["name"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func goModuleName(path string) string {
	data := readSmall(path, maxManifestBytes)
	if data == nil {
		return ""
	}
	return modfile.ModulePath(data)
}
