package util

import (
	"crypto/rand"
	"strings"
)

// NewID returns a short random identifier, used to correlate request logs.
func NewID() string {
	return strings.ToLower(rand.Text())
}
