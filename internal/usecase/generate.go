package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"oastypes/internal/domain"
)

// GenerateUseCase orchestrates one end-to-end generation run: resolve the
// document, apply the overlay, hash and short-circuit, translate, flatten,
// persist.
type GenerateUseCase struct {
	resolver  SchemaResolver
	patcher   DocumentPatcher
	generator DeclarationGenerator
	flattener ReExporter
	store     ArtifactStore
	autoAdd   bool
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewGenerateUseCase creates a GenerateUseCase. patcher may be nil when no
// overlay is configured.
func NewGenerateUseCase(
	resolver SchemaResolver,
	patcher DocumentPatcher,
	generator DeclarationGenerator,
	flattener ReExporter,
	store ArtifactStore,
	autoAdd bool,
	logger *slog.Logger,
) *GenerateUseCase {
	return &GenerateUseCase{
		resolver:  resolver,
		patcher:   patcher,
		generator: generator,
		flattener: flattener,
		store:     store,
		autoAdd:   autoAdd,
		logger:    logger.With("usecase", "Generate"),
		tracer:    otel.Tracer("oastypes"),
	}
}

// Execute runs the pipeline once. A run whose document hash matches the one
// recorded in the existing artifact writes nothing and succeeds.
func (uc *GenerateUseCase) Execute(ctx context.Context, sources []domain.SchemaSource) error {
	log := uc.logger.With(slog.Int("sources", len(sources)))
	log.Info("Starting artifact generation")

	// 1. Resolve the schema document.
	resolveCtx, resolveSpan := uc.tracer.Start(ctx, "resolve")
	doc, err := uc.resolver.Resolve(resolveCtx, sources)
	resolveSpan.End()
	if err != nil {
		log.Error("Failed to resolve schema document", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrNoDocument, err)
	}
	log = log.With(slog.String("source", doc.Source))
	log.Info("Resolved schema document", slog.Int("bytes", len(doc.Raw)))

	// 2. Apply the overlay when one is configured. The hash must cover the
	// patched bytes, so this happens before hashing.
	if uc.patcher != nil {
		patchCtx, patchSpan := uc.tracer.Start(ctx, "overlay")
		doc, err = uc.patcher.Apply(patchCtx, doc)
		patchSpan.End()
		if err != nil {
			log.Error("Failed to apply overlay", slog.Any("error", err))
			return fmt.Errorf("applying overlay: %w", err)
		}
	}

	// 3. Hash and compare against the previous artifact.
	hash, err := domain.ComputeHash(doc.Raw, domain.GeneratorVersion)
	if err != nil {
		log.Error("Failed to hash document", slog.Any("error", err))
		return fmt.Errorf("hashing document: %w", err)
	}
	if prev, ok := uc.store.PreviousHash(); ok && prev == hash {
		log.Info("Schema unchanged, skipping generation", slog.String("hash", hash.Short()))
		return nil
	}

	// 4. Generate the declaration artifact.
	_, genSpan := uc.tracer.Start(ctx, "generate")
	declSrc, enums, err := uc.generator.Generate(doc, hash)
	genSpan.End()
	if err != nil {
		log.Error("Failed to generate declarations", slog.Any("error", err))
		return fmt.Errorf("generating declarations: %w", err)
	}

	// 5. Flatten into the re-export artifact. Both artifacts exist in
	// memory before anything touches disk.
	_, flatSpan := uc.tracer.Start(ctx, "flatten")
	reSrc, err := uc.flattener.Flatten(declSrc, enums)
	flatSpan.End()
	if err != nil {
		log.Error("Failed to flatten declarations", slog.Any("error", err))
		return fmt.Errorf("flattening declarations: %w", err)
	}

	// 6. Persist, then stage when asked to.
	declarations, reExports := uc.store.Paths()
	artifacts := domain.Artifacts{
		Declarations: domain.GeneratedFile{Path: declarations, Content: declSrc},
		ReExports:    domain.GeneratedFile{Path: reExports, Content: reSrc},
	}
	if err := uc.store.Write(artifacts); err != nil {
		log.Error("Failed to write artifacts", slog.Any("error", err))
		return fmt.Errorf("writing artifacts: %w", err)
	}
	if uc.autoAdd {
		if err := uc.store.Stage(ctx); err != nil {
			log.Error("Failed to stage artifacts", slog.Any("error", err))
			return fmt.Errorf("staging artifacts: %w", err)
		}
	}

	log.Info("Generated artifacts",
		slog.String("hash", hash.Short()),
		slog.Int("enums", enums.Len()),
		slog.String("declarations", declarations),
		slog.String("reexports", reExports))
	return nil
}
