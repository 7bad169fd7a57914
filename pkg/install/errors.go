package install

import "fmt"

// Common installer errors.
var (
	// ErrInvalidWheel indicates a structurally invalid wheel payload, such as
	// an unknown data category.
	ErrInvalidWheel = fmt.Errorf("invalid wheel")
	// ErrEntryPoint indicates an entry point whose object reference lacks the
	// "module:function" separator.
	ErrEntryPoint = fmt.Errorf("invalid entry point")
)
