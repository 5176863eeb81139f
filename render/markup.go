package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	pstrconv "github.com/tdewolff/parse/v2/strconv"
	"github.com/tdewolff/parse/v2/xml"
)

// ErrMarkupSize is returned when vector markup has no root element or the
// root does not declare a usable width and height.
var ErrMarkupSize = errors.New("render: markup has no declared size")

// points per unit for the absolute units a root element may declare in.
var ptPerUnit = map[string]float64{
	"":   1,
	"pt": 1,
	"px": 0.75,
	"pc": 12,
	"in": 72,
	"cm": 72 / 2.54,
	"mm": 72 / 25.4,
}

// DeclaredSize returns the root element's width and height in pt.
// A unitless value is taken as pt.
func (m Markup) DeclaredSize() (w, h float64, err error) {
	l := xml.NewLexer(parse.NewInputString(m.Text))
	inRoot := false
	var haveW, haveH bool
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != nil && l.Err() != io.EOF {
				return 0, 0, fmt.Errorf("%w: %v", ErrMarkupSize, l.Err())
			}
			return 0, 0, fmt.Errorf("%w: no root element", ErrMarkupSize)
		case xml.StartTagToken:
			if inRoot {
				return 0, 0, fmt.Errorf("%w: unterminated root tag", ErrMarkupSize)
			}
			inRoot = true
		case xml.AttributeToken:
			if !inRoot {
				continue
			}
			name := string(l.Text())
			if name != "width" && name != "height" {
				continue
			}
			raw := strings.Trim(string(l.AttrVal()), `"'`)
			v, ok := toPt(raw)
			if !ok {
				return 0, 0, fmt.Errorf("%w: cannot parse %s=%q", ErrMarkupSize, name, raw)
			}
			if name == "width" {
				w, haveW = v, true
			} else {
				h, haveH = v, true
			}
		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if !inRoot {
				continue
			}
			if !haveW || !haveH {
				return 0, 0, fmt.Errorf("%w: root lacks width or height", ErrMarkupSize)
			}
			return w, h, nil
		}
	}
}

func toPt(raw string) (float64, bool) {
	b := []byte(strings.TrimSpace(raw))
	num, unitLen := parse.Dimension(b)
	if num == 0 || num+unitLen != len(b) {
		return 0, false
	}
	factor, ok := ptPerUnit[strings.ToLower(string(b[num:]))]
	if !ok {
		return 0, false
	}
	v, m := pstrconv.ParseFloat(b[:num])
	if m != num {
		return 0, false
	}
	return v * factor, true
}
