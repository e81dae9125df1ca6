package toolspec

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a specification from YAML and validates it. Unknown
// fields are rejected so typos in request documents surface immediately.
func ParseYAML(r io.Reader) (*Specification, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec Specification
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("toolspec: decode yaml: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("toolspec: invalid specification: %w", err)
	}
	return &spec, nil
}

// ParseYAMLBytes is ParseYAML over an in-memory document.
func ParseYAMLBytes(data []byte) (*Specification, error) {
	return ParseYAML(bytes.NewReader(data))
}
