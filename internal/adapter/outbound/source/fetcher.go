package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"oastypes/internal/domain"
)

// Fetcher acquires raw schema bytes for one kind of SchemaSource.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.SchemaSource) ([]byte, error)
}

// DefaultFetchers wires one fetcher per source kind.
func DefaultFetchers(client *http.Client, logger *slog.Logger) map[domain.SourceKind]Fetcher {
	return map[domain.SourceKind]Fetcher{
		domain.SourceKindPath:    NewPathFetcher(logger),
		domain.SourceKindCommand: NewCommandFetcher(logger),
		domain.SourceKindURL:     NewURLFetcher(client, logger),
	}
}

// PathFetcher reads the document from the local filesystem.
type PathFetcher struct {
	logger *slog.Logger
}

func NewPathFetcher(logger *slog.Logger) *PathFetcher {
	return &PathFetcher{logger: logger.With("component", "path_fetcher")}
}

func (f *PathFetcher) Fetch(_ context.Context, src domain.SchemaSource) ([]byte, error) {
	f.logger.Debug("Reading schema from file", slog.String("path", src.Value))
	data, err := os.ReadFile(src.Value)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", src.Value, err)
	}
	return data, nil
}

// CommandFetcher runs a shell command and captures its standard output.
type CommandFetcher struct {
	logger *slog.Logger
}

func NewCommandFetcher(logger *slog.Logger) *CommandFetcher {
	return &CommandFetcher{logger: logger.With("component", "command_fetcher")}
}

func (f *CommandFetcher) Fetch(ctx context.Context, src domain.SchemaSource) ([]byte, error) {
	log := f.logger.With(slog.String("command", src.Value))
	if src.Workdir != "" {
		log = log.With(slog.String("cwd", src.Workdir))
	}
	log.Debug("Running schema command")

	cmd := exec.CommandContext(ctx, "sh", "-c", src.Value)
	cmd.Dir = src.Workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("schema command failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("schema command failed: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("schema command produced no output")
	}
	return stdout.Bytes(), nil
}

// URLFetcher issues an HTTP GET bounded by the client's timeout.
type URLFetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewURLFetcher(client *http.Client, logger *slog.Logger) *URLFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLFetcher{
		httpClient: client,
		logger:     logger.With("component", "url_fetcher"),
	}
}

func (f *URLFetcher) Fetch(ctx context.Context, src domain.SchemaSource) ([]byte, error) {
	log := f.logger.With(slog.String("url", src.Value))
	log.Debug("Fetching schema from URL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", src.Value, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schema from %s: %w", src.Value, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Received non-2xx status from URL", slog.String("status", resp.Status))
		return nil, fmt.Errorf("fetching schema from %s: status %s", src.Value, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", src.Value, err)
	}
	return body, nil
}
