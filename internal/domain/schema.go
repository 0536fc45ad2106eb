package domain

import "fmt"

// GeneratorVersion participates in the content hash so that upgrading the
// generator regenerates artifacts even when the document is unchanged.
const GeneratorVersion = "0.2.0"

// SourceKind defines how a schema document is acquired.
type SourceKind string

const (
	SourceKindPath    SourceKind = "path"
	SourceKindCommand SourceKind = "command"
	SourceKindURL     SourceKind = "url"
)

// SchemaSource is one configured place to look for the schema document.
// Sources are tried in configuration order until one yields a parseable
// document.
type SchemaSource struct {
	// Kind selects the fetch mechanism.
	Kind SourceKind
	// Value is a filesystem path, a shell command line, or an HTTP(S) URL,
	// depending on Kind.
	Value string
	// Workdir is the working directory for command sources. Ignored for
	// other kinds.
	Workdir string
}

func (s SchemaSource) String() string {
	if s.Kind == SourceKindCommand && s.Workdir != "" {
		return fmt.Sprintf("%s:%s (cwd %s)", s.Kind, s.Value, s.Workdir)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}

// SchemaDocument represents a resolved API contract before translation.
type SchemaDocument struct {
	// Source describes the origin of the document for diagnostics.
	Source string
	// Raw holds the document bytes the content hash is computed over. When
	// an overlay is configured this is the post-overlay serialization.
	Raw []byte
	// Parsed holds the document parsed into a library-specific
	// representation (*openapi3.T for OpenAPI). Use interface{} to keep
	// domain clean, but requires type assertions downstream.
	Parsed interface{}
}
