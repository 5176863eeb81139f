package element

import (
	"fmt"
	"strconv"

	"github.com/ByLCY/papyrender/render"
)

// apply fits a compiler result into the host. A result of the other format is
// dropped without touching the output.
func (e *Element) apply(res render.Result, s Sample) (Outcome, error) {
	switch r := res.(type) {
	case render.Image:
		if e.cfg.Format != render.FormatImage || e.surface == nil {
			return OutcomeDropped, nil
		}
		if err := e.surface.Blit(r); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeRendered, nil
	case render.Markup:
		if e.cfg.Format != render.FormatSVG {
			return OutcomeDropped, nil
		}
		return e.applyMarkup(r, s.FontSize)
	default:
		return OutcomeDropped, nil
	}
}

// applyMarkup inserts the markup and rewrites its size in em so that it
// scales with the surrounding text.
func (e *Element) applyMarkup(m render.Markup, fontSize float64) (Outcome, error) {
	w, h, err := m.DeclaredSize()
	if err != nil {
		return OutcomeFailed, err
	}
	child, err := e.host.SetMarkup(m.Text)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("insert markup: %w", err)
	}
	width, height := EmExtent(w, h, child.Padding(), fontSize)
	child.SetAttr("width", formatEm(width))
	child.SetAttr("height", formatEm(height))
	return OutcomeRendered, nil
}

// EmExtent converts a pt extent plus padding into font-relative units.
func EmExtent(wPt, hPt float64, pad Box, fontSize float64) (w, h float64) {
	return (wPt + pad.Left + pad.Right) / fontSize, (hPt + pad.Top + pad.Bottom) / fontSize
}

func formatEm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "em"
}
