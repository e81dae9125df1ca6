package pipeline

import (
	"fmt"

	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// Confidence expresses how likely generation is to succeed for a spec.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceBlocked Confidence = "blocked"
)

// Complexity is a rough effort estimate for the requested tool.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Feasibility is a pre-generation assessment of a tool specification. It
// costs no backend calls and lets callers decide whether a generation run is
// worth starting.
type Feasibility struct {
	// Confidence estimates how likely generation is to produce an accepted
	// tool.
	Confidence Confidence `json:"confidence"`

	// Complexity estimates how involved the generated tool will be.
	Complexity Complexity `json:"complexity"`

	// Dependencies is the verdict for the declared dependencies.
	Dependencies depcheck.Verdict `json:"dependencies"`

	// Notes explain the assessment in human-readable form.
	Notes []string `json:"notes,omitempty"`
}

// AssessFeasibility evaluates spec without invoking the backend. Returns an
// error only for a malformed specification.
func (s *Service) AssessFeasibility(spec *toolspec.Specification) (*Feasibility, error) {
	if spec == nil {
		return nil, fmt.Errorf("pipeline: specification is nil")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: malformed specification: %w", err)
	}

	verdict := s.deps.Validate(spec.Dependencies, s.cfg.StrictDependencies)
	f := &Feasibility{
		Dependencies: verdict,
		Confidence:   assessConfidence(verdict),
		Complexity:   assessComplexity(spec, verdict),
	}

	switch f.Confidence {
	case ConfidenceBlocked:
		f.Notes = append(f.Notes, "unsupported dependencies block generation in strict mode")
	case ConfidenceLow:
		f.Notes = append(f.Notes, "some dependencies have no known replacement and need manual implementations")
	case ConfidenceMedium:
		f.Notes = append(f.Notes, "unsupported dependencies will be replaced with suggested alternatives")
	}
	if f.Complexity == ComplexityComplex {
		f.Notes = append(f.Notes, "large requirement surface, expect multiple generation attempts")
	}
	return f, nil
}

func assessConfidence(verdict depcheck.Verdict) Confidence {
	switch {
	case !verdict.CanProceed:
		return ConfidenceBlocked
	case verdict.AllSupported:
		return ConfidenceHigh
	default:
		// Unsupported deps with replacements are workable; deps nothing can
		// replace make acceptance unlikely.
		for _, dep := range verdict.Unsupported {
			if len(verdict.Alternatives[dep]) == 0 {
				return ConfidenceLow
			}
		}
		return ConfidenceMedium
	}
}

func assessComplexity(spec *toolspec.Specification, verdict depcheck.Verdict) Complexity {
	points := len(spec.Requirements) + len(spec.Inputs) + len(spec.Config) + len(spec.Dependencies)
	points += 2 * len(verdict.Unsupported)
	switch {
	case points <= 4:
		return ComplexitySimple
	case points <= 9:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}
