package overlay_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oastypes/internal/adapter/outbound/overlay"
	"oastypes/internal/domain"
)

const baseDocument = `{"openapi":"3.0.0","info":{"title":"Original","version":"1.0.0"},"paths":{}}`

const titleOverlay = `overlay: 1.0.0
info:
  title: Rename title
  version: 1.0.0
actions:
  - target: $.info
    update:
      title: Patched
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplier_Apply(t *testing.T) {
	applier := overlay.NewApplier(writeOverlay(t, titleOverlay), testLogger())

	doc := domain.SchemaDocument{Source: "path:openapi.json", Raw: []byte(baseDocument)}
	patched, err := applier.Apply(context.Background(), doc)
	require.NoError(t, err)

	parsed, ok := patched.Parsed.(*openapi3.T)
	require.True(t, ok)
	assert.Equal(t, "Patched", parsed.Info.Title)
	assert.Contains(t, string(patched.Raw), "Patched")
	assert.Equal(t, "path:openapi.json", patched.Source)
}

func TestApplier_ChangesContentHash(t *testing.T) {
	applier := overlay.NewApplier(writeOverlay(t, titleOverlay), testLogger())

	doc := domain.SchemaDocument{Source: "test", Raw: []byte(baseDocument)}
	patched, err := applier.Apply(context.Background(), doc)
	require.NoError(t, err)

	before, err := domain.ComputeHash(doc.Raw, domain.GeneratorVersion)
	require.NoError(t, err)
	after, err := domain.ComputeHash(patched.Raw, domain.GeneratorVersion)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestApplier_MissingOverlayFile(t *testing.T) {
	applier := overlay.NewApplier(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	_, err := applier.Apply(context.Background(), domain.SchemaDocument{Raw: []byte(baseDocument)})
	assert.Error(t, err)
}

func TestApplier_InvalidOverlay(t *testing.T) {
	applier := overlay.NewApplier(writeOverlay(t, "overlay: 1.0.0\n"), testLogger())

	_, err := applier.Apply(context.Background(), domain.SchemaDocument{Raw: []byte(baseDocument)})
	assert.Error(t, err)
}
