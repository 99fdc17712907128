package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	RequestPrefix = "req"
	maxLength     = 128
)

// New returns prefix-unixnano-random. The random part is omitted if the system source fails.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

func RequestID() string {
	return New(RequestPrefix)
}

// Valid reports whether a client supplied id is safe to log and echo back.
func Valid(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return false
		}
	}
	return true
}
