package resolver

import (
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name can be bound in a session.
func IsIdentifier(name string) bool {
	return identRe.MatchString(name)
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool { return isLetter(c) || c == '_' }
func isIdentChar(c byte) bool  { return isLetter(c) || isDigit(c) || c == '_' }

// readIdent returns the end offset of the identifier starting at i.
func readIdent(text string, i int) int {
	j := i
	for j < len(text) && isIdentChar(text[j]) {
		j++
	}
	return j
}

// skipBlanks returns the offset of the first byte at or after i that is not
// a space or tab.
func skipBlanks(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}

// readNumber returns the end offset of the numeric literal starting at i.
func readNumber(text string, i int) int {
	j := i
	for j < len(text) && (isDigit(text[j]) || text[j] == '.') {
		j++
	}
	return j
}

// readCommand returns the end offset of the LaTeX command starting at the
// backslash at i: `\frac`, `\left`, or a single escaped character like `\,`.
func readCommand(text string, i int) int {
	j := i + 1
	for j < len(text) && isLetter(text[j]) {
		j++
	}
	if j == i+1 && j < len(text) {
		j++
	}
	return j
}

// matchParen returns the index of the ')' closing the '(' at open.
func matchParen(text string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// checkBalanced verifies that (), {} and [] pairs nest properly.
func checkBalanced(text string) bool {
	var stack []byte
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '(', '{', '[':
			stack = append(stack, c)
		case ')', '}', ']':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			if (c == ')' && open != '(') || (c == '}' && open != '{') || (c == ']' && open != '[') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// splitTopLevel splits text on sep where sep is not nested in any bracket.
func splitTopLevel(text string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '(' || c == '{' || c == '[':
			depth++
		case c == ')' || c == '}' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

// splitArgs splits a call's argument text. An empty or blank argument list
// yields no arguments.
func splitArgs(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := splitTopLevel(inner, ',')
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// topLevelEquals returns the offsets of every bare '=' outside brackets.
// Comparison operators (==, <=, >=, !=) are not assignments.
func topLevelEquals(text string) []int {
	var idx []int
	depth := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '(' || c == '{' || c == '[':
			depth++
		case c == ')' || c == '}' || c == ']':
			depth--
		case c == '=' && depth == 0:
			if i > 0 && strings.IndexByte("=<>!", text[i-1]) >= 0 {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				i++
				continue
			}
			idx = append(idx, i)
		}
	}
	return idx
}

// callShape decomposes text of the exact form `name(args)`, where the
// opening parenthesis is closed by the final character.
func callShape(text string) (name, inner string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" || !isIdentStart(text[0]) {
		return "", "", false
	}
	end := readIdent(text, 0)
	name = text[:end]
	open := skipBlanks(text, end)
	if open == len(text) || text[open] != '(' {
		return "", "", false
	}
	closeIdx, found := matchParen(text, open)
	if !found || closeIdx != len(text)-1 {
		return "", "", false
	}
	return name, text[open+1 : closeIdx], true
}

// isAtomic reports whether text can be spliced into a larger expression
// without changing how it groups: a single identifier or number, or a
// fully parenthesized group.
func isAtomic(text string) bool {
	if text == "" {
		return true
	}
	if IsIdentifier(text) {
		return true
	}
	if isDigit(text[0]) && readNumber(text, 0) == len(text) {
		return true
	}
	if text[0] == '(' {
		closeIdx, ok := matchParen(text, 0)
		return ok && closeIdx == len(text)-1
	}
	return false
}

// References returns the distinct identifiers used in text, in order of first
// appearance. LaTeX commands and numbers are skipped.
func References(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\\':
			i = readCommand(text, i)
		case isDigit(c):
			i = readNumber(text, i)
		case isIdentStart(c):
			j := readIdent(text, i)
			if name := text[i:j]; !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
			i = j
		default:
			i++
		}
	}
	return out
}
