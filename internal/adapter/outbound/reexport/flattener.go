// Package reexport synthesizes the flattened re-export file from a generated
// declaration artifact.
package reexport

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"oastypes/internal/domain"
	"oastypes/pkg/ident"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Config controls the shape of the flattened file.
type Config struct {
	// PackageName is the package clause of the flattened file, typically the
	// types directory's base name. Defaults to "types".
	PackageName string
	// ImportPath is the declaration package's import path within the
	// consumer module.
	ImportPath string
}

// Flattener reads the declaration artifact back through go/parser and emits
// one-level re-exports for every schema it declares.
type Flattener struct {
	cfg    Config
	logger *slog.Logger
	tmpl   *template.Template
}

func NewFlattener(cfg Config, logger *slog.Logger) (*Flattener, error) {
	tmpl, err := template.New("reexport").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing re-export templates: %w", err)
	}
	if cfg.PackageName == "" {
		cfg.PackageName = "types"
	}
	return &Flattener{
		cfg:    cfg,
		logger: logger.With("component", "reexport_flattener"),
		tmpl:   tmpl,
	}, nil
}

// fileData is the template payload for the flattened file.
type fileData struct {
	PackageName string
	Version     string
	ImportPath  string
	Aliases     []aliasEntry
	Enums       []aliasEntry
	Members     []aliasEntry
}

type aliasEntry struct {
	LocalName string
	Target    string
}

// schemaEntry is one field of the parsed Components.Schemas aggregate.
type schemaEntry struct {
	Original string
	GoName   string
}

// identOwner records which entity claimed a re-exported identifier: a schema
// alias or a hoisted enum. The two cannot share one identifier.
type identOwner struct {
	enum bool
	name string
}

// Flatten parses the declaration source, walks the Components.Schemas
// aggregate in field order and renders the flattened file. Hoisted enums are
// folded into one consolidated alias block and one consolidated const block;
// every other schema becomes an individual type alias.
func (f *Flattener) Flatten(declSrc []byte, enums *domain.EnumSet) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "openapi.go", declSrc, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing generated declarations: %w", err)
	}

	kinds, err := typeDeclKinds(file)
	if err != nil {
		return nil, err
	}
	entries, err := aggregateEntries(file)
	if err != nil {
		return nil, err
	}
	members := constMembers(file)

	// The flattened file is one identifier namespace under the same owner
	// rule as the emitter: a hoisted enum may claim its own name twice, any
	// other repeat claim aborts the run. The emitter already rejects these,
	// so tripping here means the artifact was edited.
	byIdent := make(map[string]identOwner, len(entries))

	data := fileData{
		PackageName: f.cfg.PackageName,
		Version:     domain.GeneratorVersion,
		ImportPath:  f.cfg.ImportPath,
	}

	for _, e := range entries {
		clean := ident.Exported(e.Original)
		if clean == "" {
			return nil, fmt.Errorf("schema name %q yields no usable Go identifier", e.Original)
		}
		if prev, exists := byIdent[clean]; exists {
			return nil, &domain.CollisionError{Identifier: clean, First: prev.name, Second: e.Original}
		}

		// An entry folds into the enum blocks only when the artifact really
		// declares it in the enum form.
		if enums.Contains(e.Original) && kinds[e.GoName] {
			byIdent[clean] = identOwner{enum: true, name: e.Original}
			continue
		}
		byIdent[clean] = identOwner{name: e.Original}
		data.Aliases = append(data.Aliases, aliasEntry{
			LocalName: clean,
			Target:    "openapi." + e.GoName,
		})
	}

	for _, c := range enums.Candidates() {
		clean := ident.Exported(c.Name)
		if clean == "" {
			continue
		}
		if owner, exists := byIdent[clean]; exists && (!owner.enum || owner.name != c.Name) {
			return nil, &domain.CollisionError{Identifier: clean, First: owner.name, Second: c.Name}
		}
		byIdent[clean] = identOwner{enum: true, name: c.Name}

		data.Enums = append(data.Enums, aliasEntry{
			LocalName: clean,
			Target:    "openapi." + clean,
		})
		for _, m := range members[clean] {
			data.Members = append(data.Members, aliasEntry{
				LocalName: m,
				Target:    "openapi." + m,
			})
		}
	}

	var buf bytes.Buffer
	if err := f.tmpl.ExecuteTemplate(&buf, "schemas.go.tmpl", data); err != nil {
		return nil, fmt.Errorf("rendering re-exports: %w", err)
	}
	formatted, err := imports.Process("schemas.go", buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("formatting re-exports: %w", err)
	}

	f.logger.Info("Flattened declarations",
		slog.Int("aliases", len(data.Aliases)),
		slog.Int("enums", len(data.Enums)))
	return formatted, nil
}

// typeDeclKinds reports, per top-level type name, whether it is declared in
// the hoisted enum form, a defined string type. A name declared twice means
// the enum and schema namespaces collided in the artifact.
func typeDeclKinds(file *ast.File) (map[string]bool, error) {
	kinds := make(map[string]bool)
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			ts, ok := s.(*ast.TypeSpec)
			if !ok {
				continue
			}
			name := ts.Name.Name
			if _, seen := kinds[name]; seen {
				return nil, &domain.CollisionError{Identifier: name, First: name, Second: name}
			}
			id, isIdent := ts.Type.(*ast.Ident)
			kinds[name] = ts.Assign == token.NoPos && isIdent && id.Name == "string"
		}
	}
	return kinds, nil
}

// aggregateEntries locates Components.Schemas and returns its fields in
// declared order: original name from the json tag, referenced type from the
// field type.
func aggregateEntries(file *ast.File) ([]schemaEntry, error) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			ts, ok := s.(*ast.TypeSpec)
			if !ok || ts.Name.Name != "Components" {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				return nil, errors.New("declaration artifact: Components is not a struct")
			}
			for _, field := range st.Fields.List {
				if len(field.Names) == 0 || field.Names[0].Name != "Schemas" {
					continue
				}
				inner, ok := field.Type.(*ast.StructType)
				if !ok {
					return nil, errors.New("declaration artifact: Components.Schemas is not a struct")
				}
				return fieldEntries(inner)
			}
		}
	}
	return nil, errors.New("declaration artifact has no Components.Schemas aggregate")
}

func fieldEntries(st *ast.StructType) ([]schemaEntry, error) {
	entries := make([]schemaEntry, 0, len(st.Fields.List))
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			return nil, errors.New("declaration artifact: aggregate holds an embedded field")
		}
		fieldName := field.Names[0].Name
		if field.Tag == nil {
			return nil, fmt.Errorf("aggregate field %s carries no struct tag", fieldName)
		}
		raw, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("aggregate field %s: unreadable struct tag: %w", fieldName, err)
		}
		original, _, _ := strings.Cut(reflect.StructTag(raw).Get("json"), ",")
		if original == "" {
			return nil, fmt.Errorf("aggregate field %s carries no json tag", fieldName)
		}
		typeIdent, ok := field.Type.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("aggregate field %s references a non-identifier type", fieldName)
		}
		entries = append(entries, schemaEntry{Original: original, GoName: typeIdent.Name})
	}
	return entries, nil
}

// constMembers gathers explicitly typed package-level const names grouped by
// type, in declaration order. The untyped SchemaHash constant falls through.
func constMembers(file *ast.File) map[string][]string {
	members := make(map[string][]string)
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, s := range gd.Specs {
			vs, ok := s.(*ast.ValueSpec)
			if !ok || vs.Type == nil {
				continue
			}
			typeIdent, ok := vs.Type.(*ast.Ident)
			if !ok {
				continue
			}
			for _, n := range vs.Names {
				members[typeIdent.Name] = append(members[typeIdent.Name], n.Name)
			}
		}
	}
	return members
}
