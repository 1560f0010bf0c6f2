package util

import "strings"

// MatchMask reports whether candidate matches an IRC wildcard pattern.
// '*' matches any run of characters including the empty one, '?' matches
// exactly one character, everything else is literal. The match is anchored
// at both ends and case-sensitive; callers lowercase both sides when
// identifying users by hostmask.
//
// The loop is the classic two-pointer glob walk, linear in the combined
// input length. Patterns are never translated to regular expressions, so a
// hostile mask cannot trigger backtracking blowups.
func MatchMask(pattern, candidate string) bool {
	p, c := 0, 0
	starP, starC := -1, 0

	for c < len(candidate) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == candidate[c]):
			p++
			c++
		case p < len(pattern) && pattern[p] == '*':
			// Remember the star so we can widen its span on a later mismatch.
			starP = p
			starC = c
			p++
		case starP >= 0:
			p = starP + 1
			starC++
			c = starC
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// MatchUserHost reports whether a full userhost (nick!ident@host) matches a
// mask of the same shape. Both sides are split on '!' and '@' and compared
// componentwise so that "a!b@*" can never bleed its ident wildcard into the
// host part.
func MatchUserHost(mask, userHost string) bool {
	maskParts := strings.SplitN(mask, "!", 2)
	hostParts := strings.SplitN(userHost, "!", 2)
	if len(maskParts) != 2 || len(hostParts) != 2 {
		return false
	}

	maskIdentHost := strings.SplitN(maskParts[1], "@", 2)
	hostIdentHost := strings.SplitN(hostParts[1], "@", 2)
	if len(maskIdentHost) != 2 || len(hostIdentHost) != 2 {
		return false
	}

	if !MatchMask(maskParts[0], hostParts[0]) {
		return false
	}
	if !MatchMask(maskIdentHost[0], hostIdentHost[0]) {
		return false
	}
	return MatchMask(maskIdentHost[1], hostIdentHost[1])
}
