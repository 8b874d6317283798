package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// PropertyIDWidth is the minimum number of digits after the prefix.
const PropertyIDWidth = 4

// FormatPropertyID renders prefix + zero padded n. Padding is a minimum:
// n=12345 renders five digits.
func FormatPropertyID(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, PropertyIDWidth, n)
}

// ParsePropertyID returns the numeric suffix of id when id is exactly
// prefix followed by one or more ASCII digits.
func ParsePropertyID(prefix, id string) (int64, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FallbackPropertyID is prefix + the last 8 digits of the unix-millisecond
// timestamp. Used only when the store cannot be consulted.
func FallbackPropertyID(prefix string, unixMilli int64) string {
	s := fmt.Sprintf("%0*d", FallbackDigits, unixMilli)
	if len(s) > FallbackDigits {
		s = s[len(s)-FallbackDigits:]
	}
	return prefix + s
}

// FallbackDigits is the suffix length of timestamp ids.
const FallbackDigits = 8

// SeqOf is the sequence number id contributes to its prefix. Timestamp ids
// and ids of another prefix contribute 0.
func SeqOf(prefix, id string) int64 {
	n, ok := ParsePropertyID(prefix, id)
	if !ok || len(id)-len(prefix) >= FallbackDigits {
		return 0
	}
	return n
}
