// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"math"
	"strconv"
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParam parses a 1-based page number from a query value. Missing,
// malformed, zero and negative values all mean the first page.
func PageParam(s string) int {
	if p := AtoiDefault(s, 1); p > 1 {
		return p
	}
	return 1
}

// Offset returns the number of rows before the 1-based page. Pages below 1
// are treated as the first; offsets that would overflow saturate at
// math.MaxInt.
func Offset(page, size int) int {
	if page < 1 || size <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// TotalPages returns how many pages of size hold total items. It is 0 when
// there are no items.
func TotalPages(total int64, size int) int64 {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
