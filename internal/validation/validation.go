// Package validation checks school profile input.
package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrNameRequired indicates an empty name field.
	ErrNameRequired = errors.New("name is required")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
	// ErrEmailInvalid indicates a malformed email address.
	ErrEmailInvalid = errors.New("email address is invalid")
	// ErrURLInvalid indicates a website that is not an http(s) URL.
	ErrURLInvalid = errors.New("website must be an http or https URL")
)

// Field limits for school profile input.
const (
	MaxNameLength  = 200
	MaxShortLength = 500
	MaxLongLength  = 5000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateName validates a required display name.
func ValidateName(name string, maxLength int) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if len(name) > maxLength {
		return ErrInputTooLong
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return ErrInputInvalid
	}
	return nil
}

// ValidateLength checks an optional free-text field.
func ValidateLength(value string, maxLength int) error {
	if len(value) > maxLength {
		return ErrInputTooLong
	}
	if strings.Contains(value, "\x00") {
		return ErrInputInvalid
	}
	return nil
}

// ValidateEmail accepts an empty value or a plausible address.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > MaxShortLength || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateURL accepts an empty value or an absolute http(s) URL.
func ValidateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrURLInvalid
	}
	return nil
}
