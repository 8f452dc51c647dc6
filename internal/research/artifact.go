package research

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"subagents/internal/errors"
	"subagents/internal/paths"
)

const artifactTimeFormat = "20060102T150405Z"

// writeArtifact stores the redacted report and returns its path.
// An override dir must stay inside the working directory or an allowed root.
func (s *Service) writeArtifact(r *Report, req *ArtifactRequest) (string, error) {
	dir := s.cfg.Artifacts.Dir
	if req.Dir != "" {
		dir = req.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(s.cwd, dir)
		}
		dir = filepath.Clean(dir)
		if !s.artifactDirAllowed(dir) {
			return "", errors.NewRootNotAllowed(req.Dir)
		}
	}

	redacted, err := r.Redacted()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("research-%s-%s.json", s.now().UTC().Format(artifactTimeFormat), shortID(r.ID))
	if s.cfg.Artifacts.Compress {
		name += ".zst"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeFile(path, data, s.cfg.Artifacts.Compress); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) artifactDirAllowed(dir string) bool {
	if s.cwd != "" && paths.IsWithin(dir, s.cwd) {
		return true
	}
	for _, root := range s.cfg.Roots {
		if paths.IsWithin(dir, root) {
			return true
		}
	}
	return false
}

func writeFile(path string, data []byte, compress bool) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(bw)
		if err != nil {
			return err
		}
		w = enc
	}
	if _, err = w.Write(data); err != nil {
		return err
	}
	if enc != nil {
		if err = enc.Close(); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadArtifact loads an artifact written by a research run, decompressing
// .zst files.
func ReadArtifact(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
