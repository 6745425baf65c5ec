package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// refRegex matches script references: a letter followed by letters, digits,
// dashes, underscores or dots.
var refRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// ValidateRef validates a script reference name used to address vertices and
// tracks created earlier in the same script.
func ValidateRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidInput, "reference cannot be empty")
	}
	if len(ref) > 64 {
		return New(ErrCodeInvalidInput, "reference too long (max 64 characters): %q", ref)
	}
	if !refRegex.MatchString(ref) {
		return New(ErrCodeInvalidInput, "invalid reference %q", ref)
	}
	return nil
}

// ValidatePath validates a background bitmap path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
//
// Absolute paths are allowed; bitmaps usually live next to the project.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateFraction checks that f is a position along a track, i.e. in [0, 1].
func ValidateFraction(f float64) error {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return New(ErrCodeInvalidArgument, "position %v outside [0, 1]", f)
	}
	return nil
}

// ValidateFinite rejects NaN and infinite coordinates.
func ValidateFinite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidArgument, "coordinate %v is not finite", v)
		}
	}
	return nil
}
