package domain

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ComputeHash digests the canonical form of the document together with the
// generator version tag. Identical (document, version) pairs hash
// identically regardless of map key order in the input serialization.
func ComputeHash(raw []byte, version string) (ContentHash, error) {
	canonical, err := canonicalize(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalizing document: %w", err)
	}
	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte{0})
	h.Write([]byte(version))
	return ContentHash(fmt.Sprintf("sha256:%x", h.Sum(nil))), nil
}

// canonicalize decodes raw as JSON (falling back to YAML) and re-encodes the
// tree as JSON. encoding/json writes object keys in sorted order, which
// makes the result independent of the input's key order.
func canonicalize(raw []byte) ([]byte, error) {
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		if yamlErr := yaml.Unmarshal(raw, &tree); yamlErr != nil {
			return nil, fmt.Errorf("document is neither JSON nor YAML: %w", yamlErr)
		}
	}
	return json.Marshal(normalize(tree))
}

// normalize rewrites YAML decoding artifacts (non-string map keys) so the
// tree is JSON-encodable.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
