package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"

	"oastypes/internal/domain"
)

// Resolver tries configured sources in order and returns the first one that
// yields a parseable OpenAPI document.
type Resolver struct {
	fetchers map[domain.SourceKind]Fetcher
	logger   *slog.Logger
}

func NewResolver(fetchers map[domain.SourceKind]Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		fetchers: fetchers,
		logger:   logger.With("component", "source_resolver"),
	}
}

// Resolve attempts each source in the order given. Per-source failures are
// logged and skipped; exhausting the list is fatal and the returned error
// names every attempted source with its failure.
func (r *Resolver) Resolve(ctx context.Context, sources []domain.SchemaSource) (domain.SchemaDocument, error) {
	if len(sources) == 0 {
		return domain.SchemaDocument{}, errors.New("no schema sources configured")
	}

	var attempts []error
	for _, src := range sources {
		log := r.logger.With(slog.String("source", src.String()))

		fetcher, ok := r.fetchers[src.Kind]
		if !ok {
			return domain.SchemaDocument{}, fmt.Errorf("no fetcher registered for source kind %q", src.Kind)
		}

		raw, err := fetcher.Fetch(ctx, src)
		if err != nil {
			log.Warn("Schema source failed, trying next", slog.Any("error", err))
			attempts = append(attempts, fmt.Errorf("%s: %w", src, err))
			continue
		}

		doc, err := Parse(ctx, raw)
		if err != nil {
			log.Warn("Schema source returned unparseable document, trying next", slog.Any("error", err))
			attempts = append(attempts, fmt.Errorf("%s: %w", src, err))
			continue
		}

		log.Info("Resolved schema document", slog.Int("bytes", len(raw)))
		return domain.SchemaDocument{Source: src.String(), Raw: raw, Parsed: doc}, nil
	}

	return domain.SchemaDocument{}, fmt.Errorf("all %d schema sources failed: %w", len(sources), errors.Join(attempts...))
}

// Parse loads raw bytes as an OpenAPI document. External references are left
// unresolved; the pipeline only translates what the document itself defines.
func Parse(ctx context.Context, raw []byte) (*openapi3.T, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}
	return doc, nil
}
