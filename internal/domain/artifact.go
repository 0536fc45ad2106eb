package domain

import "fmt"

// ContentHash identifies a (schema document, generator version) pair. It is
// embedded in the generated artifact and read back on the next run for
// change detection; it is not a security digest.
type ContentHash string

// Short returns a truncated form suitable for log lines.
func (h ContentHash) Short() string {
	const n = 19 // "sha256:" + 12 hex digits
	if len(h) <= n {
		return string(h)
	}
	return string(h[:n])
}

// GeneratedFile is one output artifact ready to be written.
type GeneratedFile struct {
	Path    string
	Content []byte
}

// Artifacts is the output pair of one pipeline run: the declaration file and
// the flattened re-export file. Both are written or neither is.
type Artifacts struct {
	Declarations GeneratedFile
	ReExports    GeneratedFile
}

// EnumCandidate is a named string enumeration hoisted out of the document
// into a standalone declaration.
type EnumCandidate struct {
	// Name is the schema title, which equals the terminal segment of the
	// reference that reached the schema.
	Name        string
	Description string
	Values      []string
}

// EnumSet accumulates hoisted enums during one translation pass, preserving
// discovery order. The first candidate recorded under a name wins; later
// candidates under the same name are ignored even when structurally
// different.
type EnumSet struct {
	names      []string
	candidates map[string]EnumCandidate
}

func NewEnumSet() *EnumSet {
	return &EnumSet{candidates: make(map[string]EnumCandidate)}
}

// Add records c unless a candidate with the same name already exists. It
// reports whether c was recorded.
func (s *EnumSet) Add(c EnumCandidate) bool {
	if _, exists := s.candidates[c.Name]; exists {
		return false
	}
	s.names = append(s.names, c.Name)
	s.candidates[c.Name] = c
	return true
}

// Contains reports whether an enum with the given document name was hoisted.
func (s *EnumSet) Contains(name string) bool {
	_, ok := s.candidates[name]
	return ok
}

// Candidates returns the hoisted enums in discovery order.
func (s *EnumSet) Candidates() []EnumCandidate {
	out := make([]EnumCandidate, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.candidates[name])
	}
	return out
}

// Len returns the number of hoisted enums.
func (s *EnumSet) Len() int {
	return len(s.names)
}

// CollisionError reports two schema entities claiming the same Go
// identifier: distinct document names reducing to one identifier after
// cleaning, or an enum and a non-enum schema sharing a name.
type CollisionError struct {
	Identifier string
	First      string
	Second     string
}

func (e *CollisionError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("schema and enum %q collide on identifier %q", e.First, e.Identifier)
	}
	return fmt.Sprintf("schema names %q and %q both reduce to identifier %q", e.First, e.Second, e.Identifier)
}
