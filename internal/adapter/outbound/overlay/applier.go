package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"
	speakeasy "github.com/speakeasy-api/openapi-overlay/pkg/overlay"
	"gopkg.in/yaml.v3"

	"oastypes/internal/domain"
)

// Applier patches the resolved document with an OpenAPI Overlay before
// hashing and generation, so the content hash covers the overlaid document.
type Applier struct {
	path   string
	logger *slog.Logger
}

func NewApplier(path string, logger *slog.Logger) *Applier {
	return &Applier{
		path:   path,
		logger: logger.With("component", "overlay"),
	}
}

// Apply parses the overlay file, applies it to the document's raw bytes and
// re-parses the result. Overlay failures abort the run; they are
// misconfigurations, not source fallbacks.
func (a *Applier) Apply(ctx context.Context, doc domain.SchemaDocument) (domain.SchemaDocument, error) {
	log := a.logger.With(slog.String("overlay", a.path))
	log.Info("Applying overlay")

	o, err := speakeasy.Parse(a.path)
	if err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("parsing overlay %s: %w", a.path, err)
	}
	if err := o.Validate(); err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("validating overlay %s: %w", a.path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(doc.Raw, &node); err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("decoding document for overlay: %w", err)
	}
	if err := o.ApplyTo(&node); err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("applying overlay %s: %w", a.path, err)
	}

	patched, err := yaml.Marshal(&node)
	if err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("encoding overlaid document: %w", err)
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	parsed, err := loader.LoadFromData(patched)
	if err != nil {
		return domain.SchemaDocument{}, fmt.Errorf("parsing overlaid document: %w", err)
	}

	log.Debug("Overlay applied", slog.Int("bytes", len(patched)))
	return domain.SchemaDocument{Source: doc.Source, Raw: patched, Parsed: parsed}, nil
}
