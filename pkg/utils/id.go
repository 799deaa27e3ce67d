package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GeneratePlaybackID returns a random UUIDv4 used to address narration sessions
func GeneratePlaybackID() string {
	return uuid.NewString()
}

// GenerateRequestID generates a short request ID with a timestamp prefix
func GenerateRequestID() string {
	id := uuid.New()
	return fmt.Sprintf("req-%s-%x", time.Now().UTC().Format("20060102-150405"), id[:4])
}

// IsPlaybackID reports whether s parses as a UUID
func IsPlaybackID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
