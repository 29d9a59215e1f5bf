package security

import (
	"html"
	"regexp"
	"strings"
)

// Sanitizer provides input sanitization for user-supplied text fields
type Sanitizer struct {
	config *SanitizerConfig
}

// SanitizerConfig holds sanitizer configuration
type SanitizerConfig struct {
	// Strip all HTML tags
	StripHTML bool

	// Trim whitespace
	TrimWhitespace bool

	// Remove null bytes
	RemoveNullBytes bool

	// Remove control characters
	RemoveControlChars bool
}

// DefaultSanitizerConfig returns a default sanitizer configuration
func DefaultSanitizerConfig() *SanitizerConfig {
	return &SanitizerConfig{
		StripHTML:          true,
		TrimWhitespace:     true,
		RemoveNullBytes:    true,
		RemoveControlChars: true,
	}
}

// NewSanitizer creates a new sanitizer instance
func NewSanitizer(config *SanitizerConfig) *Sanitizer {
	if config == nil {
		config = DefaultSanitizerConfig()
	}

	return &Sanitizer{
		config: config,
	}
}

// Sanitize sanitizes a string according to the configuration
func (s *Sanitizer) Sanitize(input string) string {
	result := input

	if s.config.RemoveNullBytes {
		result = strings.ReplaceAll(result, "\x00", "")
	}

	if s.config.RemoveControlChars {
		result = removeControlChars(result)
	}

	if s.config.StripHTML {
		result = StripHTML(result)
	}

	if s.config.TrimWhitespace {
		result = strings.TrimSpace(result)
	}

	return result
}

// StripHTML removes all HTML tags from a string
func StripHTML(input string) string {
	result := htmlTagPattern.ReplaceAllString(input, "")
	return html.UnescapeString(result)
}

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	emailPattern       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)
)

// removeControlChars drops control characters except newlines and tabs
func removeControlChars(input string) string {
	return controlCharPattern.ReplaceAllString(input, "")
}

// IsValidEmail checks if a string is a valid email address
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidUsername checks if a string is a valid username
// (alphanumeric, underscore, hyphen; 3-32 characters)
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
