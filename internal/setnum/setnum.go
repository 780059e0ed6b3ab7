// Package setnum normalizes catalog set numbers.
//
// A set number exists in two equivalent spellings: the plain form
// ("21355") and the variant form ("21355-1"). The default variant
// index is 1. All functions are total: malformed or empty input
// normalizes to the empty string instead of failing.
package setnum

import (
	"strconv"
	"strings"
)

// ToPlain strips the variant suffix from a set number.
// "21355-1" and "21355" both yield "21355".
func ToPlain(ref string) string {
	t := strings.TrimSpace(ref)
	if t == "" {
		return ""
	}
	plain, _, _ := strings.Cut(t, "-")
	return plain
}

// ToVariant appends the given variant index to the plain form of ref.
// A ref that already carries a variant suffix is re-suffixed.
func ToVariant(ref string, index int) string {
	plain := ToPlain(ref)
	if plain == "" {
		return ""
	}
	return plain + "-" + strconv.Itoa(index)
}

// ToDefaultVariant returns ref with the default variant index, "-1".
func ToDefaultVariant(ref string) string {
	return ToVariant(ref, 1)
}

// IsFullRef reports whether ref is a fully-qualified set number:
// exactly one separator with non-empty halves on both sides.
func IsFullRef(ref string) bool {
	t := strings.TrimSpace(ref)
	parts := strings.Split(t, "-")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// Equal reports whether a and b identify the same set, ignoring
// variant suffixes. Empty refs identify no set, so Equal("", "") is
// false; membership checks must never match on a blank entry.
func Equal(a, b string) bool {
	pa := ToPlain(a)
	return pa != "" && pa == ToPlain(b)
}

// DeleteParam is the spelling used on removal endpoints, which accept
// only the plain form.
func DeleteParam(ref string) string {
	return ToPlain(ref)
}

// ContainsRef reports whether refs contains ref, matching first by
// literal spelling and then by plain form.
func ContainsRef(refs []string, ref string) bool {
	full := strings.TrimSpace(ref)
	plain := ToPlain(ref)
	if plain == "" {
		return false
	}
	for _, x := range refs {
		v := strings.TrimSpace(x)
		if v == "" {
			continue
		}
		if v == full || ToPlain(v) == plain {
			return true
		}
	}
	return false
}

// Dedupe returns refs with duplicates removed by plain form, keeping
// the first spelling seen and the original order. Blank entries are
// dropped.
func Dedupe(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		plain := ToPlain(r)
		if plain == "" {
			continue
		}
		if _, ok := seen[plain]; ok {
			continue
		}
		seen[plain] = struct{}{}
		out = append(out, strings.TrimSpace(r))
	}
	return out
}
