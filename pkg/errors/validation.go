package errors

import (
	"math"
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxTextLength bounds caption length in characters.
const maxTextLength = 1024

// ValidateText validates a caption string.
//
// Validation rules:
//   - Text cannot be empty or whitespace only
//   - Maximum length of 1024 characters (runes)
//   - No control characters other than newline and tab
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeInvalidInput, "text cannot be empty")
	}

	if utf8.RuneCountInString(text) > maxTextLength {
		return New(ErrCodeInvalidInput, "text too long (max %d characters)", maxTextLength)
	}

	for _, r := range text {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "text contains invalid control characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https), a host and a path
// whose basename can name the downloaded file.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "malformed URL")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL has no host")
	}

	if _, err := URLBasename(rawURL); err != nil {
		return err
	}

	return nil
}

// URLBasename returns the last element of the URL path.
// It fails when the path has no usable file name ("/", "..", empty).
func URLBasename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Wrap(ErrCodeInvalidURL, err, "malformed URL")
	}

	base := path.Base(u.Path)
	switch base {
	case "", ".", "/", "..":
		return "", New(ErrCodeInvalidURL, "URL path %q has no file name", u.Path)
	}
	if strings.ContainsAny(base, "\\\x00") {
		return "", New(ErrCodeInvalidURL, "URL file name contains invalid characters")
	}

	return base, nil
}

// ValidateGeometry validates avatar dimensions, corner radius and padding.
//
// Validation rules:
//   - Width and height must be positive
//   - Radius must lie in [0, min(width, height)/2]
//   - Padding must be non-negative and leave a positive text box
func ValidateGeometry(width, height int, radius, padding float64) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidGeometry, "size must be positive, got %dx%d", width, height)
	}

	if math.IsNaN(radius) || radius < 0 {
		return New(ErrCodeInvalidGeometry, "radius cannot be negative")
	}

	limit := float64(min(width, height)) / 2
	if radius > limit {
		return New(ErrCodeInvalidGeometry, "radius %g exceeds half the shorter side (%g)", radius, limit)
	}

	if math.IsNaN(padding) || padding < 0 {
		return New(ErrCodeInvalidGeometry, "padding cannot be negative")
	}

	if float64(width)-2*padding <= 0 || float64(height)-2*padding <= 0 {
		return New(ErrCodeInvalidGeometry, "padding %g leaves no room for text in %dx%d", padding, width, height)
	}

	return nil
}
