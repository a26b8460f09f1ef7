package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxStepNameLength bounds step names; they end up in cache keys and URLs.
const maxStepNameLength = 128

// stepNameRegex matches identifiers such as "trigger", "step_1", "loop-2".
var stepNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateStepName validates a step name for use as an anchor and selection key.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators (names are used in API paths)
//   - Maximum length of 128 characters
func ValidateStepName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidStepName, "step name cannot be empty")
	}

	if len(name) > maxStepNameLength {
		return New(ErrCodeInvalidStepName, "step name too long (max %d characters)", maxStepNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidStepName, "step name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidStepName, "step name cannot contain path separators: %q", name)
	}

	if !stepNameRegex.MatchString(name) {
		return New(ErrCodeInvalidStepName, "invalid step name: %q", name)
	}

	return nil
}

// ValidatePath validates a file path supplied on the command line or in
// configuration. It only rejects values that can never name a file.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}
