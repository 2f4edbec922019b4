package idgen

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Prefixes of streaming connection identifiers.
const (
	PrefixWebSocket = "ws"
	PrefixSSE       = "sse"
)

// NewConnectionID returns a sortable prefix_ulid identifier for a streaming connection.
func NewConnectionID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// ParseConnectionID strips the prefix and returns the ULID.
func ParseConnectionID(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, '_'); i >= 0 {
		value = value[i+1:]
	}
	return ulid.Parse(strings.ToUpper(value))
}
