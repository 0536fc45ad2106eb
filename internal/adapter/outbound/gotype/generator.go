// Package gotype translates OpenAPI component schemas into Go declaration
// source files.
package gotype

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/tools/imports"

	"oastypes/internal/domain"
	"oastypes/pkg/ident"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Config controls the shape of the generated declaration file.
type Config struct {
	// PackageName is the package clause of the generated file. Defaults to
	// "openapi".
	PackageName string
}

// Generator emits the declaration artifact for a resolved schema document.
type Generator struct {
	cfg    Config
	logger *slog.Logger
	tmpl   *template.Template
}

func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	tmpl, err := template.New("gotype").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing declaration templates: %w", err)
	}
	if cfg.PackageName == "" {
		cfg.PackageName = "openapi"
	}
	return &Generator{
		cfg:    cfg,
		logger: logger.With("component", "gotype_generator"),
		tmpl:   tmpl,
	}, nil
}

// fileData is the template payload for the declaration file.
type fileData struct {
	PackageName string
	Version     string
	Hash        string
	Schemas     []schemaEntry
	Decls       []typeDecl
	Enums       []enumDecl
}

// schemaEntry is one field of the Components.Schemas aggregate.
type schemaEntry struct {
	FieldName    string
	TypeName     string
	OriginalName string
}

type typeDecl struct {
	GoName string
	Doc    []string
	Alias  bool
	Expr   string
}

type enumDecl struct {
	GoName  string
	Doc     []string
	Members []enumMember
}

type enumMember struct {
	GoName  string
	Literal string
}

// identOwner records which entity claimed a generated identifier: a schema
// declaration or a hoisted enum. The two cannot share one identifier.
type identOwner struct {
	enum bool
	name string
}

// Generate renders the declaration artifact and returns it together with the
// hoisted enum set in discovery order.
func (g *Generator) Generate(doc domain.SchemaDocument, hash domain.ContentHash) ([]byte, *domain.EnumSet, error) {
	parsed, ok := doc.Parsed.(*openapi3.T)
	if !ok || parsed == nil {
		return nil, nil, fmt.Errorf("invalid parsed document type for Go generator: %T", doc.Parsed)
	}
	log := g.logger.With(slog.String("source", doc.Source))

	enums := domain.NewEnumSet()
	tr := &translator{enums: enums}

	names := schemaNames(parsed)
	log.Info("Generating declarations", slog.Int("schemas", len(names)))

	// One identifier namespace covers schema types and enum types. The owner
	// entry lets a hoisted enum claim its own name twice; every other repeat
	// claim aborts the run.
	byIdent := make(map[string]identOwner, len(names))

	data := fileData{
		PackageName: g.cfg.PackageName,
		Version:     domain.GeneratorVersion,
		Hash:        string(hash),
	}

	for _, name := range names {
		goName := ident.Exported(name)
		if goName == "" {
			return nil, nil, fmt.Errorf("schema name %q yields no usable Go identifier", name)
		}
		if prev, exists := byIdent[goName]; exists {
			return nil, nil, &domain.CollisionError{Identifier: goName, First: prev.name, Second: name}
		}

		ref := parsed.Components.Schemas[name]
		location := "#/components/schemas/" + name
		entry := schemaEntry{FieldName: goName, TypeName: goName, OriginalName: sanitizeTag(name)}
		owner := identOwner{name: name}

		switch {
		case ref != nil && ref.Ref != "":
			data.Decls = append(data.Decls, typeDecl{
				GoName: goName,
				Doc:    declDoc(goName, name, ""),
				Alias:  true,
				Expr:   tr.typeExpr(ref, location),
			})
		case ref != nil && ref.Value != nil:
			if _, hoisted := tr.hoist(ref.Value, location); hoisted {
				owner.enum = true
				break
			}
			expr := tr.typeExpr(ref, location)
			data.Decls = append(data.Decls, typeDecl{
				GoName: goName,
				Doc:    declDoc(goName, name, ref.Value.Description),
				Alias:  aliasForm(expr),
				Expr:   expr,
			})
		default:
			data.Decls = append(data.Decls, typeDecl{
				GoName: goName,
				Doc:    declDoc(goName, name, ""),
				Alias:  true,
				Expr:   "any",
			})
		}
		byIdent[goName] = owner
		data.Schemas = append(data.Schemas, entry)
	}

	for _, c := range enums.Candidates() {
		enumIdent := ident.Exported(c.Name)
		if owner, exists := byIdent[enumIdent]; exists && (!owner.enum || owner.name != c.Name) {
			return nil, nil, &domain.CollisionError{Identifier: enumIdent, First: owner.name, Second: c.Name}
		}
		byIdent[enumIdent] = identOwner{enum: true, name: c.Name}
		data.Enums = append(data.Enums, enumDecl{
			GoName:  enumIdent,
			Doc:     declDoc(enumIdent, c.Name, c.Description),
			Members: enumMembers(enumIdent, c.Values),
		})
	}

	var buf bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&buf, "openapi.go.tmpl", data); err != nil {
		return nil, nil, fmt.Errorf("rendering declarations: %w", err)
	}
	formatted, err := imports.Process("openapi.go", buf.Bytes(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("formatting generated declarations: %w", err)
	}

	log.Info("Generated declarations",
		slog.Int("types", len(data.Decls)),
		slog.Int("enums", enums.Len()))
	return formatted, enums, nil
}

func schemaNames(doc *openapi3.T) []string {
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil
	}
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// declDoc returns doc comment lines: the schema description when present,
// otherwise a standard one-liner.
func declDoc(goName, originalName, description string) []string {
	if description != "" {
		return strings.Split(strings.TrimSpace(description), "\n")
	}
	return []string{fmt.Sprintf("%s defines model for %s.", goName, originalName)}
}

// aliasForm reports whether the declaration must use the alias form to keep
// the underlying type's marshal methods.
func aliasForm(expr string) bool {
	switch expr {
	case "time.Time", "json.RawMessage", "any":
		return true
	}
	return false
}

// sanitizeTag drops characters that would terminate the raw-string struct
// tag literal.
func sanitizeTag(name string) string {
	return strings.ReplaceAll(name, "`", "")
}

func enumMembers(typeName string, values []string) []enumMember {
	seen := make(map[string]bool, len(values))
	members := make([]enumMember, 0, len(values))
	for i, v := range values {
		base := ident.Exported(v)
		if base == "" {
			base = fmt.Sprintf("Value%d", i)
		}
		name := typeName + base
		if seen[name] {
			name = fmt.Sprintf("%s%d", name, i)
		}
		seen[name] = true
		members = append(members, enumMember{GoName: name, Literal: strconv.Quote(v)})
	}
	return members
}
