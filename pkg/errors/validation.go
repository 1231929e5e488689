package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// base58Regex matches the Solana base58 alphabet (no 0, O, I, l).
var base58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// ValidateTokenAddress validates a Solana mint address.
//
// The rules are structural only:
//   - No empty addresses
//   - Length between 32 and 44 characters
//   - Base58 alphabet only
func ValidateTokenAddress(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "token address cannot be empty")
	}
	if len(addr) < 32 || len(addr) > 44 {
		return New(ErrCodeInvalidInput, "token address must be 32-44 characters, got %d", len(addr))
	}
	if !base58Regex.MatchString(addr) {
		return New(ErrCodeInvalidInput, "token address %q is not base58", addr)
	}
	return nil
}

// ValidateSymbol validates a display ticker symbol.
func ValidateSymbol(sym string) error {
	if sym == "" {
		return New(ErrCodeInvalidInput, "symbol cannot be empty")
	}
	if len(sym) > 16 {
		return New(ErrCodeInvalidInput, "symbol too long (max 16 characters)")
	}
	for _, r := range sym {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "symbol contains invalid characters")
		}
	}
	return nil
}

// ValidateSignature validates a transaction signature used for de-duplication.
// Signatures are opaque, so only emptiness, length and control characters are checked.
func ValidateSignature(sig string) error {
	if sig == "" {
		return New(ErrCodeInvalidEvent, "signature cannot be empty")
	}
	if len(sig) > 128 {
		return New(ErrCodeInvalidEvent, "signature too long (max 128 characters)")
	}
	for _, r := range sig {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEvent, "signature contains invalid control characters")
		}
	}
	return nil
}

// ValidatePath validates a file path given on the command line or in config.
//
// The validation rules:
//   - No empty paths
//   - No null bytes or control characters
//   - Maximum length of 500 characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
