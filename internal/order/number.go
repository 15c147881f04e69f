package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const numberPrefix = "MET"

// GenerateNumber produces a human-readable order number: prefix, date stamp,
// and a four-digit random suffix. Uniqueness is enforced by the database; the
// checkout regenerates on collision.
func GenerateNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", numberPrefix, now.Format("20060102"), rand.IntN(10000))
}
