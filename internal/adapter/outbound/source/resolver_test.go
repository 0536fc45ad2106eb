package source_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oastypes/internal/adapter/outbound/source"
	"oastypes/internal/domain"
)

func newResolver(t *testing.T) *source.Resolver {
	t.Helper()
	logger := testLogger()
	return source.NewResolver(source.DefaultFetchers(nil, logger), logger)
}

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolver_FallbackToCommand(t *testing.T) {
	resolver := newResolver(t)

	sources := []domain.SchemaSource{
		{Kind: domain.SourceKindPath, Value: "missing.json"},
		{Kind: domain.SourceKindCommand, Value: "echo {}"},
	}

	doc, err := resolver.Resolve(context.Background(), sources)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Source, "command:"), "winning source should be the command, got %s", doc.Source)

	parsed, ok := doc.Parsed.(*openapi3.T)
	require.True(t, ok)
	assert.NotNil(t, parsed)
}

func TestResolver_FirstSuccessWins(t *testing.T) {
	resolver := newResolver(t)

	first := writeSpec(t, "first.json", `{"openapi":"3.0.0","info":{"title":"First","version":"1"},"paths":{}}`)
	second := writeSpec(t, "second.json", `{"openapi":"3.0.0","info":{"title":"Second","version":"1"},"paths":{}}`)

	doc, err := resolver.Resolve(context.Background(), []domain.SchemaSource{
		{Kind: domain.SourceKindPath, Value: first},
		{Kind: domain.SourceKindPath, Value: second},
	})
	require.NoError(t, err)

	parsed := doc.Parsed.(*openapi3.T)
	assert.Equal(t, "First", parsed.Info.Title)
}

func TestResolver_UnparseableSourceSkipped(t *testing.T) {
	resolver := newResolver(t)

	broken := writeSpec(t, "broken.json", "{invalid")
	good := writeSpec(t, "good.json", `{"openapi":"3.0.0","info":{"title":"Good","version":"1"},"paths":{}}`)

	doc, err := resolver.Resolve(context.Background(), []domain.SchemaSource{
		{Kind: domain.SourceKindPath, Value: broken},
		{Kind: domain.SourceKindPath, Value: good},
	})
	require.NoError(t, err)
	assert.Equal(t, "Good", doc.Parsed.(*openapi3.T).Info.Title)
}

func TestResolver_AllSourcesExhausted(t *testing.T) {
	resolver := newResolver(t)

	_, err := resolver.Resolve(context.Background(), []domain.SchemaSource{
		{Kind: domain.SourceKindPath, Value: "missing.json"},
		{Kind: domain.SourceKindCommand, Value: "exit 7"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 schema sources failed")
	assert.Contains(t, err.Error(), "missing.json")
	assert.Contains(t, err.Error(), "exit 7")
}

func TestResolver_NoSources(t *testing.T) {
	resolver := newResolver(t)

	_, err := resolver.Resolve(context.Background(), nil)
	assert.ErrorContains(t, err, "no schema sources configured")
}

func TestResolver_UnknownKind(t *testing.T) {
	logger := testLogger()
	resolver := source.NewResolver(map[domain.SourceKind]source.Fetcher{}, logger)

	_, err := resolver.Resolve(context.Background(), []domain.SchemaSource{
		{Kind: domain.SourceKindPath, Value: "x"},
	})
	assert.ErrorContains(t, err, "no fetcher registered")
}

func TestParse_MinimalDocument(t *testing.T) {
	doc, err := source.Parse(context.Background(), []byte("{}"))
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
