package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength is the longest entity name accepted from scene fixtures.
const MaxNameLength = 64

// ValidateName validates an entity name coming from a scene fixture.
//
// The rules mirror what datablock names may hold:
//   - No empty names
//   - No control characters
//   - No double quotes, which would break property paths like ["name"]
//   - Maximum length of MaxNameLength bytes
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidName, "name %q too long (max %d characters)", name, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "name %q contains control characters", name)
		}
	}
	if strings.ContainsRune(name, '"') {
		return New(ErrCodeInvalidName, "name %q contains a double quote", name)
	}
	return nil
}

// ValidatePath performs a cheap syntactic check on a property path before it
// is handed to the resolver: non-empty, balanced brackets and quotes, no
// whitespace.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	depth := 0
	quoted := false
	for _, r := range path {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
			continue
		case unicode.IsSpace(r):
			return New(ErrCodeInvalidPath, "path %q contains whitespace", path)
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return New(ErrCodeInvalidPath, "path %q has unbalanced brackets", path)
			}
		}
	}
	if quoted {
		return New(ErrCodeInvalidPath, "path %q has an unterminated quote", path)
	}
	if depth != 0 {
		return New(ErrCodeInvalidPath, "path %q has unbalanced brackets", path)
	}
	return nil
}
