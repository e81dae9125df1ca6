package depcheck

import (
	"fmt"

	"github.com/MrWong99/toolforge/internal/pyast"
)

// ValidateImports parses Python source and classifies the root modules of its
// import statements against the registry, re-using the same rules as
// [Validator.Validate]. This catches imports the generated code picked up
// beyond the dependencies the tool specification declared.
//
// Returns an error only when code does not parse; classification itself never
// fails.
func (v *Validator) ValidateImports(code string, strict bool) (Verdict, error) {
	mod, err := pyast.Parse(code)
	if err != nil {
		return Verdict{}, fmt.Errorf("depcheck: parse imports: %w", err)
	}
	return v.Validate(pyast.ImportRoots(mod), strict), nil
}
