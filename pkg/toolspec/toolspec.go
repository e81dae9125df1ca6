// Package toolspec defines the declarative description of a tool to
// generate. A specification is created once per generation request and never
// mutated afterwards; every pipeline component receives it by value or as a
// read-only reference.
package toolspec

import (
	"errors"
	"fmt"
	"strings"
)

// ParamType tags the declared type of an input or config parameter. The tags
// mirror Python annotation names since the generated code is Python.
type ParamType string

const (
	TypeString ParamType = "str"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
	TypeList   ParamType = "list"
	TypeDict   ParamType = "dict"
)

// knownTypes is the closed set of accepted parameter type tags.
var knownTypes = map[ParamType]bool{
	TypeString: true, TypeInt: true, TypeFloat: true,
	TypeBool: true, TypeList: true, TypeDict: true,
}

// Parameter describes one typed input or config parameter of the tool.
type Parameter struct {
	// Name is the Python identifier of the parameter.
	Name string `yaml:"name" json:"name"`

	// Type is the parameter's declared type tag.
	Type ParamType `yaml:"type" json:"type"`

	// Required marks the parameter as mandatory; required parameters carry no
	// default in the generated input schema.
	Required bool `yaml:"required" json:"required"`

	// Description is free text shown to the model and in documentation.
	Description string `yaml:"description" json:"description"`

	// Default is the default value literal for optional parameters, rendered
	// verbatim into the schema. Ignored when Required is true.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

// Specification is the immutable input of a generation request.
type Specification struct {
	// Name is the tool identifier, e.g. "weather_lookup".
	Name string `yaml:"name" json:"name"`

	// DisplayName is the human-readable title.
	DisplayName string `yaml:"display_name" json:"display_name"`

	// Description is free text describing what the tool does.
	Description string `yaml:"description" json:"description"`

	// Category is a coarse tag ("web_scraping", "data_processing", ...).
	Category string `yaml:"category" json:"category"`

	// Requirements are ordered behavioral requirement statements.
	Requirements []string `yaml:"requirements" json:"requirements"`

	// Inputs are the tool's typed input parameters in declaration order.
	Inputs []Parameter `yaml:"inputs" json:"inputs"`

	// Config are optional configuration parameters (API keys, endpoints).
	Config []Parameter `yaml:"config,omitempty" json:"config,omitempty"`

	// Dependencies are the requested Python dependency names.
	Dependencies []string `yaml:"dependencies" json:"dependencies"`

	// Author is recorded in documentation output only.
	Author string `yaml:"author,omitempty" json:"author,omitempty"`

	// Version is the tool's semantic version string.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// Validate reports every structural problem in the specification at once.
func (s *Specification) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name must be set"))
	} else if !identifier(s.Name) {
		errs = append(errs, fmt.Errorf("name %q is not a valid identifier", s.Name))
	}
	if s.Description == "" {
		errs = append(errs, errors.New("description must be set"))
	}

	seen := map[string]bool{}
	for i, p := range s.Inputs {
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Errorf("inputs[%d]: %w", i, err))
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("inputs[%d]: duplicate parameter %q", i, p.Name))
		}
		seen[p.Name] = true
	}
	for i, p := range s.Config {
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Errorf("config[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Parameter) validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("parameter name must be set"))
	} else if !identifier(p.Name) {
		errs = append(errs, fmt.Errorf("parameter name %q is not a valid identifier", p.Name))
	}
	if p.Type == "" {
		errs = append(errs, errors.New("parameter type must be set"))
	} else if !knownTypes[p.Type] {
		errs = append(errs, fmt.Errorf("unknown parameter type %q", p.Type))
	}
	return errors.Join(errs...)
}

// ClassName derives the Python tool class name from the spec name:
// "weather_lookup" becomes "WeatherLookupTool".
func (s *Specification) ClassName() string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(s.Name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Tool")
	return b.String()
}

// identifier reports whether s is a valid Python identifier (ASCII subset).
func identifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
