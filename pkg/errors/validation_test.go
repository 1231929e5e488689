package errors

import (
	"strings"
	"testing"
)

func TestValidateTokenAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"wrapped SOL", "So11111111111111111111111111111111111111112", false},
		{"bonk", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", false},

		{"empty", "", true},
		{"too short", "So1111111", true},
		{"too long", strings.Repeat("1", 45), true},
		{"zero not base58", "0o11111111111111111111111111111111111111112", true},
		{"capital O", "O011111111111111111111111111111111111111112", true},
		{"space", "So11111111111111111111 1111111111111111111112", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "BONK", false},
		{"with dollar", "$WIF", false},
		{"empty", "", true},
		{"too long", strings.Repeat("A", 17), true},
		{"space", "MY TOKEN", true},
		{"control", "A\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSymbol(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSignature(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"base58 sig", "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", false},
		{"opaque id", "trade-42", false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", 129), true},
		{"newline", "abc\ndef", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignature(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignature(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidEvent) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidEvent)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "trades.ndjson", false},
		{"absolute", "/var/lib/retrocausal/trades.json", false},
		{"empty", "", true},
		{"null byte", "foo\x00bar", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePath(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/trades", false},
		{"http", "http://localhost:8080/feed", false},
		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
