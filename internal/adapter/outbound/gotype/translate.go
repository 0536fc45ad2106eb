package gotype

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"oastypes/internal/domain"
	"oastypes/pkg/ident"
)

// translator turns schema nodes into Go type expressions. Hoisted enums are
// recorded in the EnumSet handed in by the caller; the set is the only state
// shared with the surrounding generation pass.
type translator struct {
	enums *domain.EnumSet
}

// typeExpr renders the Go type expression for a schema node. location is the
// node's document pointer (e.g. #/components/schemas/Pet/properties/status);
// its terminal segment drives the enum hoisting decision.
func (t *translator) typeExpr(ref *openapi3.SchemaRef, location string) string {
	if ref == nil {
		return "any"
	}
	if ref.Ref != "" {
		if name := ident.Exported(path.Base(ref.Ref)); name != "" {
			return name
		}
		return "any"
	}

	v := ref.Value
	if v == nil {
		return "any"
	}

	if name, ok := t.hoist(v, location); ok {
		return name
	}

	switch {
	case len(v.AllOf) > 0:
		props := make(openapi3.Schemas)
		required := make(map[string]bool)
		collectAllOf(v, props, required)
		return t.structExpr(props, required, location)
	case len(v.OneOf) > 0 || len(v.AnyOf) > 0:
		// Go has no union types; defer decoding to the consumer.
		return "json.RawMessage"
	case len(v.Properties) > 0:
		return t.structExpr(v.Properties, requiredSet(v.Required), location)
	}

	if v.Type == nil {
		return "any"
	}

	switch {
	case v.Type.Is("object"):
		return t.mapExpr(v, location)
	case v.Type.Is("array"):
		if v.Items == nil {
			return "[]any"
		}
		return "[]" + t.typeExpr(v.Items, location+"/items")
	case v.Type.Is("string"):
		switch v.Format {
		case "date-time":
			return "time.Time"
		case "byte", "binary":
			return "[]byte"
		default:
			return "string"
		}
	case v.Type.Is("integer"):
		switch v.Format {
		case "int32":
			return "int32"
		case "int64":
			return "int64"
		default:
			return "int"
		}
	case v.Type.Is("number"):
		if v.Format == "float" {
			return "float32"
		}
		return "float64"
	case v.Type.Is("boolean"):
		return "bool"
	default:
		return "any"
	}
}

// hoist applies the enum hoisting rule: a string-typed enum whose title
// equals the terminal segment of its location is the enum. The candidate is
// recorded (first write wins) and the enum's Go type name is substituted at
// the site.
func (t *translator) hoist(v *openapi3.Schema, location string) (string, bool) {
	if len(v.Enum) == 0 || v.Type == nil || !v.Type.Is("string") {
		return "", false
	}
	if v.Title == "" || v.Title != path.Base(location) {
		return "", false
	}
	name := ident.Exported(v.Title)
	if name == "" {
		return "", false
	}

	values := make([]string, 0, len(v.Enum))
	for _, ev := range v.Enum {
		if s, ok := ev.(string); ok {
			values = append(values, s)
		}
	}
	t.enums.Add(domain.EnumCandidate{
		Name:        v.Title,
		Description: v.Description,
		Values:      values,
	})
	return name, true
}

// structExpr renders an inline struct literal type. Properties are emitted
// in sorted name order so output is deterministic.
func (t *translator) structExpr(props openapi3.Schemas, required map[string]bool, location string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("struct {\n")
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		fieldName := ident.Exported(name)
		if fieldName == "" {
			fieldName = fmt.Sprintf("Field%d", i)
		}
		if seen[fieldName] {
			fieldName = fmt.Sprintf("%s%d", fieldName, i)
		}
		seen[fieldName] = true

		prop := props[name]
		expr := t.typeExpr(prop, location+"/properties/"+name)

		optional := !required[name]
		nullable := prop != nil && prop.Value != nil && prop.Value.Nullable
		if (optional || nullable) && needsPointer(expr) {
			expr = "*" + expr
		}

		tag := name
		if optional {
			tag += ",omitempty"
		}
		fmt.Fprintf(&b, "\t%s %s `json:%q`\n", fieldName, expr, tag)
	}
	b.WriteString("}")
	return b.String()
}

// mapExpr renders an object without named properties.
func (t *translator) mapExpr(v *openapi3.Schema, location string) string {
	if v.AdditionalProperties.Schema != nil {
		return "map[string]" + t.typeExpr(v.AdditionalProperties.Schema, location+"/additionalProperties")
	}
	return "map[string]any"
}

// collectAllOf flattens allOf composition into one property set. Later
// members override earlier ones on property name conflicts; required lists
// accumulate.
func collectAllOf(v *openapi3.Schema, props openapi3.Schemas, required map[string]bool) {
	for _, sub := range v.AllOf {
		sv := sub.Value
		if sv == nil {
			continue
		}
		if len(sv.AllOf) > 0 {
			collectAllOf(sv, props, required)
		}
		for name, prop := range sv.Properties {
			props[name] = prop
		}
		for _, r := range sv.Required {
			required[r] = true
		}
	}
	for name, prop := range v.Properties {
		props[name] = prop
	}
	for _, r := range v.Required {
		required[r] = true
	}
}

func requiredSet(required []string) map[string]bool {
	set := make(map[string]bool, len(required))
	for _, r := range required {
		set[r] = true
	}
	return set
}

// needsPointer reports whether an optional field of this type needs pointer
// indirection to distinguish absence. Nilable types already have a zero
// value that round-trips as absent.
func needsPointer(expr string) bool {
	if strings.HasPrefix(expr, "[]") || strings.HasPrefix(expr, "map[") {
		return false
	}
	switch expr {
	case "any", "json.RawMessage":
		return false
	}
	return true
}
