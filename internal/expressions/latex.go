package expressions

import (
	"fmt"
	"strings"
)

// latexFunctions are commands rendered as plain function names.
var latexFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"arcsin": true, "arccos": true, "arctan": true,
	"sinh": true, "cosh": true, "tanh": true,
	"log": true, "ln": true, "lg": true, "exp": true,
	"min": true, "max": true,
}

// latexSymbols are commands rendered as plain identifiers.
var latexSymbols = map[string]bool{
	"pi": true, "alpha": true, "beta": true, "gamma": true, "delta": true,
	"epsilon": true, "theta": true, "lambda": true, "mu": true, "rho": true,
	"sigma": true, "tau": true, "phi": true, "omega": true,
}

var latexOperators = map[string]string{
	"cdot": "*", "times": "*", "ast": "*", "div": "/",
	"le": "<=", "leq": "<=", "ge": ">=", "geq": ">=", "neq": "!=", "ne": "!=",
	",": " ", ";": " ", ":": " ", "!": "", " ": " ", "quad": " ", "qquad": " ",
}

// latexTranslator rewrites the supported LaTeX subset into infix text.
type latexTranslator struct {
	src string
	pos int
}

// translateLaTeX converts LaTeX math into infix syntax understood by the
// expression parser: \frac, \sqrt, \cdot/\times/\div, \left/\right, ^{...},
// subscripts, named functions and implicit multiplication.
func translateLaTeX(src string) (string, error) {
	t := &latexTranslator{src: src}
	out, err := t.sequence(false)
	if err != nil {
		return "", err
	}
	return insertImplicitProducts(out), nil
}

func (t *latexTranslator) errorf(format string, args ...any) error {
	return fmt.Errorf("at offset %d: %s", t.pos, fmt.Sprintf(format, args...))
}

// sequence translates until end of input, or until the closing '}' when
// inGroup is set (the brace is left for the caller).
func (t *latexTranslator) sequence(inGroup bool) (string, error) {
	var b strings.Builder
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == '$':
			return "", t.errorf("math-mode delimiter '$' is not allowed")
		case c < 0x20 && c != ' ' && c != '\t' && c != '\n' && c != '\r':
			return "", t.errorf("unexpected control character %q", c)
		case c == '\\':
			s, err := t.command()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c == '{':
			g, err := t.group()
			if err != nil {
				return "", err
			}
			b.WriteString("(" + g + ")")
		case c == '}':
			if inGroup {
				return b.String(), nil
			}
			return "", t.errorf("unbalanced '}'")
		case c == '^':
			t.pos++
			t.skipSpaces()
			if t.pos < len(t.src) && t.src[t.pos] == '{' {
				g, err := t.group()
				if err != nil {
					return "", err
				}
				b.WriteString("^(" + g + ")")
			} else {
				b.WriteByte('^')
			}
		case c == '_':
			t.pos++
			sub, err := t.subscript()
			if err != nil {
				return "", err
			}
			b.WriteString("_" + sub)
		case c == '*' && t.pos+1 < len(t.src) && t.src[t.pos+1] == '*':
			t.pos += 2
			b.WriteByte('^')
		default:
			b.WriteByte(c)
			t.pos++
		}
	}
	if inGroup {
		return "", t.errorf("missing '}'")
	}
	return b.String(), nil
}

// group translates a braced group, or a single token when no brace follows.
func (t *latexTranslator) group() (string, error) {
	t.skipSpaces()
	if t.pos >= len(t.src) {
		return "", t.errorf("missing argument")
	}
	switch c := t.src[t.pos]; {
	case c == '{':
		t.pos++
		inner, err := t.sequence(true)
		if err != nil {
			return "", err
		}
		t.pos++ // closing '}'
		if strings.TrimSpace(inner) == "" {
			return "", t.errorf("empty group")
		}
		return inner, nil
	case c == '\\':
		return t.command()
	default:
		t.pos++
		return string(c), nil
	}
}

// subscript reads the text after '_' as part of the identifier.
func (t *latexTranslator) subscript() (string, error) {
	if t.pos >= len(t.src) {
		return "", t.errorf("missing subscript")
	}
	if t.src[t.pos] != '{' {
		c := t.src[t.pos]
		t.pos++
		if !isAlnum(c) {
			return "", t.errorf("invalid subscript %q", c)
		}
		return string(c), nil
	}
	end := strings.IndexByte(t.src[t.pos:], '}')
	if end < 0 {
		return "", t.errorf("missing '}' in subscript")
	}
	sub := strings.TrimSpace(t.src[t.pos+1 : t.pos+end])
	t.pos += end + 1
	for i := 0; i < len(sub); i++ {
		if !isAlnum(sub[i]) {
			return "", t.errorf("invalid subscript %q", sub)
		}
	}
	if sub == "" {
		return "", t.errorf("empty subscript")
	}
	return sub, nil
}

func (t *latexTranslator) command() (string, error) {
	start := t.pos
	t.pos++ // backslash
	for t.pos < len(t.src) && isLetter(t.src[t.pos]) {
		t.pos++
	}
	if t.pos == start+1 && t.pos < len(t.src) {
		t.pos++
	}
	name := t.src[start+1 : t.pos]

	switch {
	case name == "left" || name == "right":
		return t.delimiter(name)
	case name == "{":
		return "(", nil
	case name == "}":
		return ")", nil
	case name == "frac" || name == "dfrac" || name == "tfrac":
		num, err := t.group()
		if err != nil {
			return "", err
		}
		den, err := t.group()
		if err != nil {
			return "", err
		}
		return "((" + num + ")/(" + den + "))", nil
	case name == "sqrt":
		return t.sqrt()
	case name == "operatorname":
		fn, err := t.group()
		if err != nil {
			return "", err
		}
		return fn, nil
	case latexFunctions[name]:
		return t.function(name)
	case latexSymbols[name]:
		return name, nil
	}
	if op, ok := latexOperators[name]; ok {
		return op, nil
	}
	return "", t.errorf("unsupported command \\%s", name)
}

// function renders \sin x and \sin{x} as sin(x); an explicit parenthesis
// after the name is left to the surrounding sequence.
func (t *latexTranslator) function(name string) (string, error) {
	t.skipSpaces()
	if t.pos >= len(t.src) {
		return "", t.errorf("missing argument for \\%s", name)
	}
	if t.src[t.pos] == '(' || strings.HasPrefix(t.src[t.pos:], "\\left") {
		return name, nil
	}
	arg, err := t.group()
	if err != nil {
		return "", err
	}
	return name + "(" + arg + ")", nil
}

func (t *latexTranslator) delimiter(which string) (string, error) {
	t.skipSpaces()
	if t.pos >= len(t.src) {
		return "", t.errorf("missing delimiter after \\%s", which)
	}
	c := t.src[t.pos]
	t.pos++
	switch c {
	case '(', '[':
		return "(", nil
	case ')', ']':
		return ")", nil
	case '.':
		return "", nil
	case '\\':
		if t.pos < len(t.src) && (t.src[t.pos] == '{' || t.src[t.pos] == '}') {
			t.pos++
			if t.src[t.pos-1] == '{' {
				return "(", nil
			}
			return ")", nil
		}
	}
	return "", t.errorf("unsupported delimiter after \\%s", which)
}

func (t *latexTranslator) sqrt() (string, error) {
	t.skipSpaces()
	var index string
	if t.pos < len(t.src) && t.src[t.pos] == '[' {
		end := strings.IndexByte(t.src[t.pos:], ']')
		if end < 0 {
			return "", t.errorf("missing ']' in root index")
		}
		idx, err := translateLaTeX(t.src[t.pos+1 : t.pos+end])
		if err != nil {
			return "", err
		}
		index = idx
		t.pos += end + 1
	}
	radicand, err := t.group()
	if err != nil {
		return "", err
	}
	if index == "" {
		return "sqrt(" + radicand + ")", nil
	}
	return "((" + radicand + ")^(1/(" + index + ")))", nil
}

func (t *latexTranslator) skipSpaces() {
	for t.pos < len(t.src) && (t.src[t.pos] == ' ' || t.src[t.pos] == '\t') {
		t.pos++
	}
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAlnum(c byte) bool  { return isLetter(c) || isDigit(c) }

type tokenKind int

const (
	tokNone tokenKind = iota
	tokNumber
	tokIdent
	tokClose
	tokOther
)

// insertImplicitProducts makes juxtaposition explicit: 2x, 2(x), (a)(b),
// (a)x and "x y" all become products. An identifier directly followed by
// '(' stays a call.
func insertImplicitProducts(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	prev := tokNone
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(' ')
			i++
		case isDigit(c) || (c == '.' && i+1 < len(s) && isDigit(s[i+1])):
			if prev == tokClose || prev == tokIdent || prev == tokNumber {
				b.WriteByte('*')
			}
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			b.WriteString(s[i:j])
			i = j
			prev = tokNumber
		case isLetter(c) || c == '_':
			if prev == tokClose || prev == tokIdent || prev == tokNumber {
				b.WriteByte('*')
			}
			j := i
			for j < len(s) && (isAlnum(s[j]) || s[j] == '_') {
				j++
			}
			b.WriteString(s[i:j])
			i = j
			prev = tokIdent
			if j < len(s) && s[j] == '(' {
				prev = tokOther
			}
		case c == '(':
			if prev == tokClose || prev == tokNumber {
				b.WriteByte('*')
			}
			b.WriteByte(c)
			i++
			prev = tokOther
		case c == ')':
			b.WriteByte(c)
			i++
			prev = tokClose
		default:
			b.WriteByte(c)
			i++
			prev = tokOther
		}
	}
	return b.String()
}
