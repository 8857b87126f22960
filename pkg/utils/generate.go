package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateBookingRef creates a human-readable booking reference.
// Format: BOOK-YYYYMMDD-HHMMSS-RANDOM
func GenerateBookingRef() string {
	now := time.Now()

	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%04d", rand.Intn(10000))

	return fmt.Sprintf("BOOK-%s-%s-%s", datePart, timePart, randomPart)
}
