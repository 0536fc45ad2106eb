// Package workspace persists generated artifacts into the consumer project
// and answers questions about it (module path, previous artifact hash).
package workspace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"

	"oastypes/internal/domain"
)

// Config locates the consumer project and the output directory.
type Config struct {
	// Root is the consumer project root, the directory holding go.mod.
	// Defaults to ".".
	Root string
	// TypesDir is the output directory relative to Root. Defaults to
	// "internal/types".
	TypesDir string
}

// Store reads and writes the artifact pair under the consumer project.
type Store struct {
	cfg    Config
	logger *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.TypesDir == "" {
		cfg.TypesDir = "internal/types"
	}
	return &Store{cfg: cfg, logger: logger.With("component", "workspace_store")}
}

// Paths returns the declaration and re-export artifact paths.
func (s *Store) Paths() (declarations string, reExports string) {
	return filepath.Join(s.cfg.Root, s.cfg.TypesDir, "openapi", "openapi.go"),
		filepath.Join(s.cfg.Root, s.cfg.TypesDir, "schemas.go")
}

// ImportPath derives the declaration package's import path from the consumer
// module's go.mod. The re-export file cannot be rendered without it.
func (s *Store) ImportPath() (string, error) {
	modPath := filepath.Join(s.cfg.Root, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", modPath, err)
	}
	mf, err := modfile.ParseLax(modPath, data, nil)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", modPath, err)
	}
	if mf.Module == nil || mf.Module.Mod.Path == "" {
		return "", fmt.Errorf("%s declares no module path", modPath)
	}
	return path.Join(mf.Module.Mod.Path, filepath.ToSlash(s.cfg.TypesDir), "openapi"), nil
}

var hashConstPattern = regexp.MustCompile(`const SchemaHash = "([^"]+)"`)

// PreviousHash extracts the hash constant from the existing declaration
// artifact. A missing file, an unreadable file or an absent constant all
// read as "no previous hash"; the next write repairs any of them.
func (s *Store) PreviousHash() (domain.ContentHash, bool) {
	declarations, _ := s.Paths()
	data, err := os.ReadFile(declarations)
	if err != nil {
		return "", false
	}
	m := hashConstPattern.FindSubmatch(data)
	if m == nil {
		return "", false
	}
	return domain.ContentHash(m[1]), true
}

// Write persists both artifacts, each via temp-file-then-rename in its
// target directory so readers never observe a half-written file. The
// declaration file goes last: its embedded hash marks the pair complete,
// and must not land unless the re-export file already has.
func (s *Store) Write(artifacts domain.Artifacts) error {
	for _, f := range []domain.GeneratedFile{artifacts.ReExports, artifacts.Declarations} {
		if err := writeFile(f); err != nil {
			return err
		}
		s.logger.Info("Wrote artifact",
			slog.String("path", f.Path),
			slog.Int("bytes", len(f.Content)))
	}
	return nil
}

func writeFile(f domain.GeneratedFile) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(f.Content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode on %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.Path, err)
	}
	return nil
}

// Stage marks both artifacts for commit with git add. Paths are passed
// relative to the project root because -C moves git's working directory
// there.
func (s *Store) Stage(ctx context.Context) error {
	declarations := path.Join(filepath.ToSlash(s.cfg.TypesDir), "openapi", "openapi.go")
	reExports := path.Join(filepath.ToSlash(s.cfg.TypesDir), "schemas.go")

	cmd := exec.CommandContext(ctx, "git", "-C", s.cfg.Root, "add", "--", declarations, reExports)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("git add: %s", strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("git add: %w", err)
	}

	s.logger.Info("Staged artifacts",
		slog.String("declarations", declarations),
		slog.String("reexports", reExports))
	return nil
}
