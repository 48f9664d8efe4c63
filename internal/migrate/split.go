package migrate

import (
	"strings"
	"unicode"
)

// splitStatements splits a script on top-level semicolons. Quoted strings,
// quoted identifiers, comments and dollar-quoted bodies are kept intact.
func splitStatements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
	)
	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			stmts = append(stmts, strings.TrimSpace(current.String()))
		}
		current.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(script, i+1, c)
			current.WriteString(script[i:end])
			i = end - 1
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			i += end - 1
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
				break
			}
			i += end + 3
		case c == '$':
			tag, ok := dollarTag(script[i:])
			if !ok {
				current.WriteByte(c)
				continue
			}
			end := strings.Index(script[i+len(tag):], tag)
			if end < 0 {
				current.WriteString(script[i:])
				i = len(script)
				break
			}
			stop := i + len(tag) + end + len(tag)
			current.WriteString(script[i:stop])
			i = stop - 1
		case c == ';':
			current.WriteByte(c)
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return stmts
}

// closingQuote returns the index just past the quote closing the literal
// opened before from. Doubled quotes are escapes.
func closingQuote(script string, from int, quote byte) int {
	for i := from; i < len(script); i++ {
		if script[i] != quote {
			continue
		}
		if i+1 < len(script) && script[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(script)
}

// dollarTag reports the $tag$ opening s, if any. Positional parameters such
// as $1 are not tags.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			return s[:i+1], true
		case c == '_' || unicode.IsLetter(rune(c)):
		case c >= '0' && c <= '9' && i > 1:
		default:
			return "", false
		}
	}
	return "", false
}
