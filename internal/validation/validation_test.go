package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"valid", "SMA Negeri 1", nil},
		{"empty", "", ErrNameRequired},
		{"whitespace", "   ", ErrNameRequired},
		{"too long", strings.Repeat("a", MaxNameLength+1), ErrInputTooLong},
		{"newline", "SMA\nNegeri", ErrInputInvalid},
		{"null byte", "SMA\x00", ErrInputInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input, MaxNameLength); !errors.Is(err, tt.want) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestValidateLength(t *testing.T) {
	if err := ValidateLength("", MaxShortLength); err != nil {
		t.Errorf("expected empty value to pass, got %v", err)
	}
	if err := ValidateLength(strings.Repeat("x", MaxShortLength+1), MaxShortLength); !errors.Is(err, ErrInputTooLong) {
		t.Errorf("expected ErrInputTooLong, got %v", err)
	}
	if err := ValidateLength("multi\nline is fine", MaxLongLength); err != nil {
		t.Errorf("expected newlines to pass, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"", "admin@sekolah.sch.id", "a.b+c@example.com"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", email, err)
		}
	}

	invalid := []string{"not-an-email", "a@b", "two words@example.com", "@example.com"}
	for _, email := range invalid {
		if err := ValidateEmail(email); !errors.Is(err, ErrEmailInvalid) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrEmailInvalid", email, err)
		}
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"", "https://sekolah.sch.id", "http://localhost:8080/profil"}
	for _, raw := range valid {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", raw, err)
		}
	}

	invalid := []string{"sekolah.sch.id", "ftp://files.example.com", "javascript:alert(1)", "https://"}
	for _, raw := range invalid {
		if err := ValidateURL(raw); !errors.Is(err, ErrURLInvalid) {
			t.Errorf("ValidateURL(%q) = %v, want ErrURLInvalid", raw, err)
		}
	}
}
