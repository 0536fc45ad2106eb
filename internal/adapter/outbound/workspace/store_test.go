package workspace_test

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oastypes/internal/adapter/outbound/workspace"
	"oastypes/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newStore(t *testing.T) (*workspace.Store, string) {
	t.Helper()
	root := t.TempDir()
	store := workspace.NewStore(workspace.Config{Root: root, TypesDir: "internal/types"}, testLogger())
	return store, root
}

func artifactsFor(store *workspace.Store, decl, reExports string) domain.Artifacts {
	declPath, rePath := store.Paths()
	return domain.Artifacts{
		Declarations: domain.GeneratedFile{Path: declPath, Content: []byte(decl)},
		ReExports:    domain.GeneratedFile{Path: rePath, Content: []byte(reExports)},
	}
}

func TestStore_Paths(t *testing.T) {
	store := workspace.NewStore(workspace.Config{Root: "/repo", TypesDir: "internal/types"}, testLogger())

	declarations, reExports := store.Paths()
	assert.Equal(t, filepath.Join("/repo", "internal", "types", "openapi", "openapi.go"), declarations)
	assert.Equal(t, filepath.Join("/repo", "internal", "types", "schemas.go"), reExports)
}

func TestStore_Defaults(t *testing.T) {
	store := workspace.NewStore(workspace.Config{}, testLogger())

	declarations, _ := store.Paths()
	assert.Equal(t, filepath.Join("internal", "types", "openapi", "openapi.go"), declarations)
}

func TestStore_WriteThenPreviousHash(t *testing.T) {
	store, _ := newStore(t)

	decl := "package openapi\n\nconst SchemaHash = \"sha256:abc\"\n"
	require.NoError(t, store.Write(artifactsFor(store, decl, "package types\n")))

	hash, ok := store.PreviousHash()
	require.True(t, ok)
	assert.Equal(t, domain.ContentHash("sha256:abc"), hash)

	declPath, rePath := store.Paths()
	info, err := os.Stat(declPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	content, err := os.ReadFile(rePath)
	require.NoError(t, err)
	assert.Equal(t, "package types\n", string(content))
}

func TestStore_WriteReplacesExisting(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Write(artifactsFor(store, "old", "old")))
	require.NoError(t, store.Write(artifactsFor(store, "new decl", "new re-export")))

	declPath, _ := store.Paths()
	content, err := os.ReadFile(declPath)
	require.NoError(t, err)
	assert.Equal(t, "new decl", string(content))
}

func TestStore_FailedReExportWriteKeepsPreviousHash(t *testing.T) {
	store, _ := newStore(t)

	v1 := "package openapi\n\nconst SchemaHash = \"sha256:v1\"\n"
	v2 := "package openapi\n\nconst SchemaHash = \"sha256:v2\"\n"
	require.NoError(t, store.Write(artifactsFor(store, v1, "package types // v1\n")))

	// A directory at the re-export path makes its rename fail.
	_, rePath := store.Paths()
	require.NoError(t, os.Remove(rePath))
	require.NoError(t, os.Mkdir(rePath, 0o755))

	err := store.Write(artifactsFor(store, v2, "package types // v2\n"))
	require.Error(t, err)

	// A failed pair write must not advance the recorded hash.
	hash, ok := store.PreviousHash()
	require.True(t, ok)
	assert.Equal(t, domain.ContentHash("sha256:v1"), hash)

	// Clearing the obstruction lets the next write repair the pair.
	require.NoError(t, os.Remove(rePath))
	require.NoError(t, store.Write(artifactsFor(store, v2, "package types // v2\n")))
	hash, ok = store.PreviousHash()
	require.True(t, ok)
	assert.Equal(t, domain.ContentHash("sha256:v2"), hash)

	content, err := os.ReadFile(rePath)
	require.NoError(t, err)
	assert.Equal(t, "package types // v2\n", string(content))
}

func TestStore_PreviousHashMissingArtifact(t *testing.T) {
	store, _ := newStore(t)

	_, ok := store.PreviousHash()
	assert.False(t, ok)
}

func TestStore_PreviousHashMalformedArtifact(t *testing.T) {
	store, _ := newStore(t)

	declPath, _ := store.Paths()
	require.NoError(t, os.MkdirAll(filepath.Dir(declPath), 0o755))
	require.NoError(t, os.WriteFile(declPath, []byte("package openapi\n"), 0o644))

	_, ok := store.PreviousHash()
	assert.False(t, ok)
}

func TestStore_ImportPath(t *testing.T) {
	store, root := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n\ngo 1.24\n"), 0o644))

	importPath, err := store.ImportPath()
	require.NoError(t, err)
	assert.Equal(t, "example.com/demo/internal/types/openapi", importPath)
}

func TestStore_ImportPathWithoutGoMod(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.ImportPath()
	assert.ErrorContains(t, err, "go.mod")
}

func TestStore_Stage(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	store, root := newStore(t)

	init := exec.Command("git", "-C", root, "init", "-q")
	require.NoError(t, init.Run())

	require.NoError(t, store.Write(artifactsFor(store, "package openapi\n", "package types\n")))
	require.NoError(t, store.Stage(context.Background()))

	out, err := exec.Command("git", "-C", root, "diff", "--cached", "--name-only").Output()
	require.NoError(t, err)
	staged := string(out)
	assert.Contains(t, staged, "internal/types/openapi/openapi.go")
	assert.Contains(t, staged, "internal/types/schemas.go")
}

func TestStore_StageOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	store, _ := newStore(t)

	require.NoError(t, store.Write(artifactsFor(store, "package openapi\n", "package types\n")))

	err := store.Stage(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "git add"))
}
