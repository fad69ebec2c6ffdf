package metrics

import (
	"strings"
	"unicode"
)

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = "none"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindConnection ErrorKind = "connection"
	ErrorKindHTTP       ErrorKind = "http_error"
)

var kindLabels = map[ErrorKind]string{
	ErrorKindNone:       "None",
	ErrorKindTimeout:    "Timeout",
	ErrorKindConnection: "Connection error",
	ErrorKindHTTP:       "HTTP error response",
}

// Label returns a human-friendly name for the kind.
func (k ErrorKind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	if k == "" {
		return "Unknown error"
	}
	return string(k)
}

// ParseErrorKind maps a string back to an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, bool) {
	kind := ErrorKind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := kindLabels[kind]
	return kind, ok
}

const maxDetailLen = 200

// NormalizeDetail collapses whitespace and control characters and caps the
// length so details can be used as histogram keys.
func NormalizeDetail(detail string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(detail) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxDetailLen {
		out = string(runes[:maxDetailLen])
	}
	return out
}
