package dom

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	pstrconv "github.com/tdewolff/parse/v2/strconv"

	"github.com/ByLCY/papyrender/element"
)

// Style holds the values a node gets when neither it nor its ancestors
// declare them inline. Lengths are CSS pixels.
type Style struct {
	FontSize     float64
	LineHeight   float64 // multiple of the font size
	ContentWidth float64
	// Padding applies to inserted vector children.
	Padding element.Box
}

// DefaultStyle mirrors a browser's defaults for body text.
func DefaultStyle() Style {
	return Style{FontSize: 16, LineHeight: 1.2, ContentWidth: 640}
}

// declarations parses an inline style attribute into property → value.
func declarations(style string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(style) == "" {
		return out
	}
	p := css.NewParser(parse.NewInputString(style), true)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			return out
		case css.DeclarationGrammar:
			var vals []string
			for _, v := range p.Values() {
				if v.TokenType != css.WhitespaceToken {
					vals = append(vals, string(v.Data))
				}
			}
			out[strings.ToLower(string(data))] = strings.Join(vals, " ")
		}
	}
}

// number splits "12.5px" into 12.5 and "px".
func number(v string) (float64, string, bool) {
	b := []byte(strings.TrimSpace(v))
	n, u := parse.Dimension(b)
	if n == 0 || n+u != len(b) {
		return 0, "", false
	}
	f, m := pstrconv.ParseFloat(b[:n])
	if m != n {
		return 0, "", false
	}
	return f, strings.ToLower(string(b[n:])), true
}

// length resolves an absolute or font-relative length to pixels.
func length(v string, fontSize float64) (float64, bool) {
	f, unit, ok := number(v)
	if !ok {
		return 0, false
	}
	switch unit {
	case "px":
		return f, true
	case "pt":
		return f * 4 / 3, true
	case "em":
		return f * fontSize, true
	case "":
		return f, f == 0
	default:
		return 0, false
	}
}

// lineHeight resolves a line-height value; unitless numbers scale the font size.
func lineHeight(v string, fontSize float64) (float64, bool) {
	if strings.EqualFold(strings.TrimSpace(v), "normal") {
		return 1.2 * fontSize, true
	}
	if f, unit, ok := number(v); ok && unit == "" {
		return f * fontSize, true
	}
	return length(v, fontSize)
}

// padding applies a padding shorthand and the per-side properties to base.
func padding(decl map[string]string, fontSize float64, base element.Box) element.Box {
	if v, ok := decl["padding"]; ok {
		var sides []float64
		for _, f := range strings.Fields(v) {
			px, ok := length(f, fontSize)
			if !ok {
				sides = nil
				break
			}
			sides = append(sides, px)
		}
		switch len(sides) {
		case 1:
			base = element.Box{Top: sides[0], Right: sides[0], Bottom: sides[0], Left: sides[0]}
		case 2:
			base = element.Box{Top: sides[0], Right: sides[1], Bottom: sides[0], Left: sides[1]}
		case 3:
			base = element.Box{Top: sides[0], Right: sides[1], Bottom: sides[2], Left: sides[1]}
		case 4:
			base = element.Box{Top: sides[0], Right: sides[1], Bottom: sides[2], Left: sides[3]}
		}
	}
	for name, side := range map[string]*float64{
		"padding-top":    &base.Top,
		"padding-right":  &base.Right,
		"padding-bottom": &base.Bottom,
		"padding-left":   &base.Left,
	} {
		if v, ok := decl[name]; ok {
			if px, ok := length(v, fontSize); ok {
				*side = px
			}
		}
	}
	return base
}

// withDeclaration returns style with prop set to value, replacing an
// existing declaration of prop.
func withDeclaration(style, prop, value string) string {
	var parts []string
	for _, part := range strings.Split(style, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, ":")
		if strings.EqualFold(strings.TrimSpace(name), prop) {
			continue
		}
		parts = append(parts, part)
	}
	parts = append(parts, prop+": "+value)
	return strings.Join(parts, "; ")
}
