package util

import (
	"strconv"
)

// ParseIntDefault converts a query parameter to int, returning def on any
// parse failure or non-positive value.
func ParseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
