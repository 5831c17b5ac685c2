package config

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeSuffixes lists accepted units, longest first so "KIB" wins over "B".
var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"MIB", 1 << 20},
	{"KIB", 1 << 10},
	{"MB", 1_000_000},
	{"KB", 1_000},
	{"B", 1},
}

// ParseSize converts a human-readable size such as "64KiB" or "1MB" to
// bytes. A bare number is raw bytes. Negative sizes are rejected.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid size: empty")
	}

	upper := strings.ToUpper(s)
	numStr, multiplier := s, int64(1)

	for _, sf := range sizeSuffixes {
		if strings.HasSuffix(upper, sf.suffix) {
			numStr = strings.TrimSpace(s[:len(s)-len(sf.suffix)])
			multiplier = sf.multiplier

			break
		}
	}

	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must be non-negative", s)
	}

	return int64(n * float64(multiplier)), nil
}
