package contracts

import (
	"fmt"
	"strings"
)

// MaxTickerLen is the longest accepted symbol
const MaxTickerLen = 10

// NormalizeTicker trims and uppercases a symbol and validates it.
// Accepted: 1-10 chars of A-Z, 0-9, '.', '-', '^', '=' after normalization.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" || len(t) > MaxTickerLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
		}
	}
	return t, nil
}

// NormalizeTickers normalizes and de-duplicates a list, keeping first-seen order.
// Invalid entries are returned separately.
func NormalizeTickers(raw []string) (valid []string, invalid []string) {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		t, err := NormalizeTicker(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		valid = append(valid, t)
	}
	return valid, invalid
}
