package errors

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var yearRegex = regexp.MustCompile(`^\d{4}$`)

// ParseYear validates a four-digit year string and returns its value.
func ParseYear(raw string) (int, error) {
	if !yearRegex.MatchString(raw) {
		return 0, New(ErrCodeInvalidYear, "invalid year parameter %q: provide a 4-digit year", raw)
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, Wrap(ErrCodeInvalidYear, err, "invalid year parameter %q", raw)
	}
	return y, nil
}

// ValidateKey validates an entity key received from a client.
//
// The rules are conservative:
//   - No empty (or whitespace-only) keys
//   - No control characters
//   - Maximum length of 256 bytes
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return New(ErrCodeInvalidKey, "company name cannot be empty")
	}
	if len(key) > 256 {
		return New(ErrCodeInvalidKey, "company name too long (max 256 characters)")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "company name contains invalid control characters")
		}
	}
	return nil
}

// ValidateField checks that field is one of allowed.
func ValidateField(field string, allowed []string) error {
	for _, a := range allowed {
		if field == a {
			return nil
		}
	}
	return New(ErrCodeInvalidField, "invalid field %q", field)
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
