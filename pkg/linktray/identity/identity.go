// Package identity maps heterogeneous source-native identifiers (numeric ids,
// opaque alphanumeric ids) onto a single stable integer key space so links
// from different feeds can be deduplicated and referenced uniformly.
package identity

import "strconv"

// Normalize returns the canonical integer identity for a source-native id.
// Numeric ids pass through unchanged; anything else is hashed. The mapping is
// a pure function: the same input yields the same integer within a process
// and across restarts.
func Normalize(id string) int {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return NormalizeString(id)
}

// NormalizeString folds an opaque string id into a non-negative integer using
// the classic 31-multiplier rolling hash over its character codes, truncated
// to 32 bits. Not cryptographic; collisions are possible and accepted.
func NormalizeString(s string) int {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
