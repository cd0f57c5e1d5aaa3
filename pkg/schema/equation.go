package schema

import (
	"fmt"
	"strings"
)

// LineStyle is the stroke pattern used to draw an equation on a graph.
type LineStyle string

const (
	LineStyleSolid   LineStyle = "-"
	LineStyleDashed  LineStyle = "--"
	LineStyleDotted  LineStyle = ":"
	LineStyleDashDot LineStyle = "-."
)

// DefaultLineStyle is applied when an equation is created without a style.
const DefaultLineStyle = LineStyleSolid

var lineStyleNames = map[LineStyle]string{
	LineStyleSolid:   "SOLID",
	LineStyleDashed:  "DASHED",
	LineStyleDotted:  "DOTTED",
	LineStyleDashDot: "DASH_DOT",
}

// LineStyles returns every accepted line style, in declaration order.
func LineStyles() []LineStyle {
	return []LineStyle{LineStyleSolid, LineStyleDashed, LineStyleDotted, LineStyleDashDot}
}

// Name returns the upper-case label for the style ("SOLID", "DASHED", ...).
func (s LineStyle) Name() string {
	return lineStyleNames[s]
}

// Valid reports whether s is one of the accepted styles.
func (s LineStyle) Valid() bool {
	_, ok := lineStyleNames[s]
	return ok
}

// ParseLineStyle accepts either the symbol ("--") or the label, in any case ("DASHED", "dashed").
func ParseLineStyle(v string) (LineStyle, error) {
	if v == "" {
		return DefaultLineStyle, nil
	}
	if LineStyle(v).Valid() {
		return LineStyle(v), nil
	}
	for style, name := range lineStyleNames {
		if strings.EqualFold(name, v) {
			return style, nil
		}
	}
	return "", NewErrorf(ErrCodeValidation, "invalid line style %q: must be one of -, --, :, -.", v)
}

// Field limits shared by validation and storage.
const (
	MaxGraphNameLen    = 100
	MaxPreviewLen      = 255
	MaxEquationLen     = 100
	MaxParsedLen       = 100
	MaxColor           = 0xFFFFFF
	MinLineWidth       = 1
	DefaultLineWidth   = 2
	DefaultEquationHex = 0x000000
)

// ColorHex renders a decimal color as #rrggbb.
func ColorHex(color int) string {
	return fmt.Sprintf("#%06x", color&MaxColor)
}
