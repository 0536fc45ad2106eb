package usecase

import (
	"context"
	"errors"

	"oastypes/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrNoDocument means every configured schema source was attempted and
	// none yielded a parseable document.
	ErrNoDocument = errors.New("no schema source yielded a document")
)

// SchemaResolver acquires the schema document from an ordered source list,
// falling through failed sources until one wins.
type SchemaResolver interface {
	Resolve(ctx context.Context, sources []domain.SchemaSource) (domain.SchemaDocument, error)
}

// DocumentPatcher rewrites a resolved document before it is hashed and
// translated. The overlay applier implements it.
type DocumentPatcher interface {
	Apply(ctx context.Context, doc domain.SchemaDocument) (domain.SchemaDocument, error)
}

// DeclarationGenerator renders the declaration artifact for a document and
// reports the enum set hoisted while translating it.
type DeclarationGenerator interface {
	Generate(doc domain.SchemaDocument, hash domain.ContentHash) ([]byte, *domain.EnumSet, error)
}

// ReExporter renders the flattened re-export artifact from the declaration
// source.
type ReExporter interface {
	Flatten(declSrc []byte, enums *domain.EnumSet) ([]byte, error)
}

// ArtifactStore persists the artifact pair in the consumer workspace.
type ArtifactStore interface {
	// Paths returns where the declaration and re-export artifacts land.
	Paths() (declarations string, reExports string)
	// PreviousHash reports the hash recorded in the existing declaration
	// artifact; ok is false when none is readable.
	PreviousHash() (hash domain.ContentHash, ok bool)
	// Write persists both artifacts.
	Write(artifacts domain.Artifacts) error
	// Stage marks both artifacts for commit in version control.
	Stage(ctx context.Context) error
}
