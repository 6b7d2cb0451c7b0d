package scan

import (
	"regexp"
	"strings"
)

// MatchAll is the conventional "everything" pattern. It is special-cased
// to match every path, including top-level entries without a separator,
// which a literal glob translation would miss.
const MatchAll = "**/*"

// Match reports whether rel matches the glob pattern. Semantics follow
// shell-style fnmatch: `*` and `?` match any characters including the
// path separator, `[seq]` is a character class.
func Match(rel, pattern string) bool {
	if pattern == "" || pattern == MatchAll {
		return true
	}
	re, err := translate(pattern)
	if err != nil {
		return rel == pattern
	}
	return re.MatchString(rel)
}

// MatchScopePath matches a pattern against a scope-relative path. A
// leading "**/" is also tried stripped, so "**/x.go" accepts the
// top-level "x.go".
func MatchScopePath(rel, pattern string) bool {
	if pattern == "" || pattern == MatchAll {
		return true
	}
	if Match(rel, pattern) {
		return true
	}
	if alt, ok := strings.CutPrefix(pattern, "**/"); ok {
		return Match(rel, alt)
	}
	return false
}

// translate converts a glob pattern into an anchored regular expression.
func translate(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`\A`)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				// unterminated class, treat '[' literally
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : j]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteByte('[')
			b.WriteString(strings.ReplaceAll(class, `\`, `\\`))
			b.WriteByte(']')
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`\z`)
	return regexp.Compile(b.String())
}
