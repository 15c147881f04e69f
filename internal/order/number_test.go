package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumber(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^MET-20260901-\d{4}$`)

	for range 50 {
		n := GenerateNumber(now)
		require.Regexp(t, pattern, n)
	}
}
