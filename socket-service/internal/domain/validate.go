package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxIDLength         = 128
	MaxContentLength    = 2000
	MaxStreamChatLength = 500
	MaxTokenFieldLength = 32
	MaxMediaURLLength   = 2048
	DefaultMessageType  = "text"
)

// ValidateID checks an identifier that will be embedded in a room key.
func ValidateID(field, id string) error {
	switch {
	case id == "":
		return NewValidationError(field, "is required")
	case len(id) > MaxIDLength:
		return NewValidationError(field, "is too long")
	case strings.ContainsAny(id, ": \t\r\n"):
		return NewValidationError(field, "contains invalid characters")
	}
	return nil
}

// NormalizeText trims s and checks its length in characters.
func NormalizeText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", NewValidationError(field, "is too long")
	}
	return s, nil
}

// ValidateToken checks a short enum-like field such as a status or reaction type.
func ValidateToken(field, s string) error {
	if s == "" {
		return NewValidationError(field, "is required")
	}
	if len(s) > MaxTokenFieldLength || strings.ContainsAny(s, ": \t\r\n.$") {
		return NewValidationError(field, "is invalid")
	}
	return nil
}

func validateContentType(t ContentType) error {
	if t == "" {
		return NewValidationError("contentType", "is required")
	}
	if !t.Valid() {
		return NewValidationError("contentType", "is not supported")
	}
	return nil
}
