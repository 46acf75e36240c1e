// Package normalize folds identity-provider input into canonical shapes
// before it reaches the stores or the sign-in resolver.
package normalize

import "strings"

// Email lower-cases and trims an email address or UPN.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name collapses surrounding whitespace on a display name.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Domain returns the part of a UPN after '@', or "" when there is none.
func Domain(upn string) string {
	if i := strings.IndexByte(upn, '@'); i >= 0 {
		return upn[i+1:]
	}
	return ""
}

// Groups normalizes a group claim into a trimmed, deduplicated list.
//
// Depending on the identity-provider environment the claim arrives as an
// array of strings or as a single comma-delimited string; both collapse to
// the same canonical form here so the resolver never branches on shape.
// Group identifiers are NOT case-folded: matching against a tenant's
// approved list is exact and case-sensitive.
func Groups(raw []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range raw {
		for _, g := range strings.Split(item, ",") {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}

// AdminList parses the comma-separated bootstrap administrator list from
// configuration: trimmed, lower-cased, empties dropped.
func AdminList(raw string) []string {
	var out []string
	for _, addr := range strings.Split(raw, ",") {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
