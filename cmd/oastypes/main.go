package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"oastypes/configs"
	"oastypes/internal/adapter/outbound/gotype"
	"oastypes/internal/adapter/outbound/overlay"
	"oastypes/internal/adapter/outbound/reexport"
	"oastypes/internal/adapter/outbound/source"
	"oastypes/internal/adapter/outbound/workspace"
	"oastypes/internal/domain"
	"oastypes/internal/usecase"
	"oastypes/pkg/ident"
)

func main() {
	// === Command Line Flags ===
	var flagSources []domain.SchemaSource
	flag.Func("oas-path", "schema file path (repeatable; sources are tried in written order)", func(v string) error {
		flagSources = append(flagSources, domain.SchemaSource{Kind: domain.SourceKindPath, Value: v})
		return nil
	})
	flag.Func("oas-command", "shell command printing the schema to stdout (repeatable)", func(v string) error {
		flagSources = append(flagSources, domain.SchemaSource{Kind: domain.SourceKindCommand, Value: v})
		return nil
	})
	flag.Func("oas-url", "schema HTTP(S) URL (repeatable)", func(v string) error {
		flagSources = append(flagSources, domain.SchemaSource{Kind: domain.SourceKindURL, Value: v})
		return nil
	})
	var (
		flagRoot       = flag.String("project-root", "", `consumer project root holding go.mod (default ".")`)
		flagTypesDir   = flag.String("types-dir", "", `output directory relative to the project root (default "internal/types")`)
		flagCommandCwd = flag.String("command-cwd", "", "working directory for command sources")
		flagOverlay    = flag.String("overlay", "", "OpenAPI Overlay file applied before generation")
		flagAutoAdd    = flag.Bool("auto-add", false, "git add the generated artifacts")
		flagTimeout    = flag.Int("timeout", 0, "URL fetch timeout in milliseconds (default 30000)")
		flagConfig     = flag.String("config", "", "YAML config file path")
		flagLogLevel   = flag.String("log-level", "", `log level: debug, info, warn or error (default "info")`)
		flagVersion    = flag.Bool("version", false, "print the generator version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Println(domain.GeneratorVersion)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat environment and file values, but only when written.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "project-root":
			cfg.ProjectRoot = *flagRoot
		case "types-dir":
			cfg.TypesDir = *flagTypesDir
		case "overlay":
			cfg.Overlay = *flagOverlay
		case "timeout":
			cfg.TimeoutMS = *flagTimeout
		case "log-level":
			cfg.LogLevel = *flagLogLevel
		case "auto-add":
			cfg.AutoAdd = *flagAutoAdd
		}
	})
	if err := cfg.Validate(); err != nil {
		usageError(err.Error())
	}

	// Source flags replace the config file's list entirely.
	sources := flagSources
	if len(sources) == 0 {
		sources, err = cfg.DomainSources()
		if err != nil {
			usageError(err.Error())
		}
	}
	if len(sources) == 0 {
		usageError("no schema sources configured; pass -oas-path, -oas-command or -oas-url, or list sources in the config file")
	}
	if *flagCommandCwd != "" {
		applied := false
		for i := range sources {
			if sources[i].Kind == domain.SourceKindCommand {
				sources[i].Workdir = *flagCommandCwd
				applied = true
			}
		}
		if !applied {
			usageError("-command-cwd requires at least one command source")
		}
	}

	// === Logging ===
	logLevel := cfg.ParsedLogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", logLevel.String()))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	resolver := source.NewResolver(source.DefaultFetchers(httpClient, logger), logger)

	var patcher usecase.DocumentPatcher
	if cfg.Overlay != "" {
		patcher = overlay.NewApplier(cfg.Overlay, logger)
	}

	store := workspace.NewStore(workspace.Config{Root: cfg.ProjectRoot, TypesDir: cfg.TypesDir}, logger)

	// The re-export file imports the declaration package by its full path,
	// so a missing go.mod fails the run before anything is generated.
	importPath, err := store.ImportPath()
	if err != nil {
		logger.Error("Failed to resolve consumer module path.", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := gotype.NewGenerator(gotype.Config{PackageName: "openapi"}, logger)
	if err != nil {
		logger.Error("Failed to initialize declaration generator.", slog.Any("error", err))
		os.Exit(1)
	}
	flattener, err := reexport.NewFlattener(reexport.Config{
		PackageName: ident.Package(filepath.Base(cfg.TypesDir)),
		ImportPath:  importPath,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize re-export flattener.", slog.Any("error", err))
		os.Exit(1)
	}

	generateUC := usecase.NewGenerateUseCase(resolver, patcher, generator, flattener, store, cfg.AutoAdd, logger)

	// === Run ===
	if err := generateUC.Execute(ctx, sources); err != nil {
		logger.Error("Generation failed.", slog.Any("error", err))
		os.Exit(1)
	}
}

func usageError(msg string) {
	fmt.Fprintf(os.Stderr, "oastypes: %s\n", msg)
	fmt.Fprintf(os.Stderr, "Run 'oastypes -h' for usage.\n")
	os.Exit(2)
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP
// trace exporter. It returns a shutdown function to be called on exit.
// Tracing stays disabled unless OTEL_EXPORTER_OTLP_ENDPOINT is set.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("oastypes"),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
