package classify

import "regexp"

// Match is the outcome of searching a pattern in a text block.
// Pos is only meaningful when Matched is true.
type Match struct {
	Matched bool `json:"matched"`
	Pos     int  `json:"pos"`
}

// NotFound is the Match returned when a pattern does not occur.
var NotFound = Match{Matched: false, Pos: -1}

// Found returns a Match at the given byte offset.
func Found(pos int) Match {
	return Match{Matched: true, Pos: pos}
}

// Before reports whether m is a match located strictly before other.
// A match is always before a NotFound.
func (m Match) Before(other Match) bool {
	if !m.Matched {
		return false
	}
	if !other.Matched {
		return true
	}
	return m.Pos < other.Pos
}

// Test reports whether pattern matches anywhere in text.
func Test(pattern *regexp.Regexp, text string) bool {
	if pattern == nil {
		return false
	}
	return pattern.MatchString(text)
}

// Search returns the first match of pattern in text.
func Search(pattern *regexp.Regexp, text string) Match {
	if pattern == nil {
		return NotFound
	}
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return NotFound
	}
	return Found(loc[0])
}

// CountAll returns the number of non-overlapping matches of pattern in text.
func CountAll(pattern *regexp.Regexp, text string) int {
	if pattern == nil {
		return 0
	}
	return len(pattern.FindAllStringIndex(text, -1))
}
