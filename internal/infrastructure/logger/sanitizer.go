package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// ContentLevel controls how message text appears in logs.
type ContentLevel string

const (
	// ContentNone replaces all message text
	ContentNone ContentLevel = "none"
	// ContentHashed hashes recognizable PII and keeps the rest
	ContentHashed ContentLevel = "hashed"
	// ContentFull logs text unchanged
	ContentFull ContentLevel = "full"
)

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardPattern = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	ipv4Pattern       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Pattern       = regexp.MustCompile(`\b(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}\b`)
)

// Sanitizer masks customer PII in chat text before it is logged.
type Sanitizer struct {
	level ContentLevel
	salt  string
}

// NewSanitizer creates a sanitizer. salt keeps hashes stable per deployment.
func NewSanitizer(level ContentLevel, salt string) *Sanitizer {
	return &Sanitizer{level: level, salt: salt}
}

// Redact returns text as it may appear in logs.
func (s *Sanitizer) Redact(text string) string {
	switch s.level {
	case ContentNone:
		return "[REDACTED]"
	case ContentFull:
		return text
	default:
		return s.hashPII(text)
	}
}

// Hash returns a short salted digest, for correlating identifiers without logging them.
func (s *Sanitizer) Hash(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(value + s.salt))
	return hex.EncodeToString(h.Sum(nil))[:8]
}

func (s *Sanitizer) hashPII(input string) string {
	result := creditCardPattern.ReplaceAllString(input, "[CC:REDACTED]")
	result = ssnPattern.ReplaceAllString(result, "[SSN:REDACTED]")

	result = emailPattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.Hash(match))
	})
	result = ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.Hash(match))
	})
	result = ipv6Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.Hash(match))
	})
	result = phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.Hash(match))
	})

	return result
}
