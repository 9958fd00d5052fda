package name

import "slices"

// CloserToTarget reports whether a is strictly closer to target than b,
// comparing a^target and b^target as big-endian unsigned integers.
func CloserToTarget(a, b, target NameType) bool {
	return Compare(a, b, target) < 0
}

// Compare orders a and b by XOR distance to target: -1 if a is closer,
// 1 if b is closer, 0 only when a == b.
func Compare(a, b, target NameType) int {
	for i := 0; i < Bytes; i++ {
		da := a[i] ^ target[i]
		db := b[i] ^ target[i]
		if da != db {
			if da < db {
				return -1
			}
			return 1
		}
	}
	return 0
}

// SortByCloseness sorts names in place, closest to target first.
// Equal names keep their input order.
func SortByCloseness(names []NameType, target NameType) {
	slices.SortStableFunc(names, func(a, b NameType) int {
		return Compare(a, b, target)
	})
}

// Closest returns up to n names from names, closest to target first.
// The input slice is left untouched.
func Closest(names []NameType, target NameType, n int) []NameType {
	out := slices.Clone(names)
	SortByCloseness(out, target)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
