package errors

import (
	"strings"
	"testing"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "2024", want: 2024},
		{input: "0999", want: 999},
		{input: "24", wantErr: true},
		{input: "20245", wantErr: true},
		{input: "abcd", wantErr: true},
		{input: "", wantErr: true},
		{input: "2024 ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseYear(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYear(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidYear) {
				t.Errorf("ParseYear(%q) returned wrong error code: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Apple", false},
		{"with spaces", "Saudi Aramco", false},
		{"unicode", "Nestlé", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"control char", "App\x00le", true},
		{"too long", strings.Repeat("a", 257), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidKey) {
				t.Errorf("ValidateKey(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateField(t *testing.T) {
	allowed := []string{"industry", "business"}
	if err := ValidateField("industry", allowed); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateField("_id", allowed)
	if err == nil || !Is(err, ErrCodeInvalidField) {
		t.Errorf("ValidateField(_id) = %v, want INVALID_FIELD", err)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://logo.example.com/a.png", false},
		{"http://example.com", false},
		{"", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidYear,
		ErrCodeInvalidFormat,
		ErrCodeInvalidField,
		ErrCodeInvalidKey,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeUnauthorized,
		ErrCodeUnavailable,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
