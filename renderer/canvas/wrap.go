package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/papyrender/layout"
)

// measurer 抽象出测量文本宽度的能力，便于在测试中替换字体。
type measurer interface {
	TextWidth(s string) float64
}

var _ measurer = (*canvas.FontFace)(nil)

// lineBuilder 累积一行内容并在需要时输出。
type lineBuilder struct {
	lines []layout.TextLine
	buf   strings.Builder
	width float64
}

func (b *lineBuilder) add(s string, w float64) {
	b.buf.WriteString(s)
	b.width += w
}

// emit 输出当前行；force 为 true 时即使为空也输出一行（显式换行产生的空行）。
func (b *lineBuilder) emit(force bool) {
	if b.buf.Len() == 0 {
		if force {
			b.lines = append(b.lines, layout.TextLine{})
		}
		return
	}
	b.lines = append(b.lines, layout.TextLine{Content: b.buf.String(), Width: b.width})
	b.buf.Reset()
	b.width = 0
}

// greedyWrapTokens 按宽度限制（mm）贪心折行。
// nowrap 只按显式换行切分；break-word 逐字符切分；其余模式优先在空白处断行，超长词再在词内拆分。
func greedyWrapTokens(content string, width float64, face measurer, wrap string) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	if wrap == "nowrap" {
		parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
		lines := make([]layout.TextLine, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, layout.TextLine{Content: p, Width: face.TextWidth(p)})
		}
		return lines
	}

	b := &lineBuilder{}
	if wrap == "break-word" {
		for _, r := range content {
			switch r {
			case '\r':
				continue
			case '\n':
				b.emit(true)
				continue
			}
			s := string(r)
			cw := face.TextWidth(s)
			if b.width > 0 && b.width+cw > limit {
				b.emit(false)
			}
			b.add(s, cw)
		}
		b.emit(true)
		return b.lines
	}

	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			b.emit(true)
			continue
		}
		tokenWidth := face.TextWidth(token)
		if b.width > 0 && b.width+tokenWidth > limit {
			b.emit(false)
			// 行首空白不计入新行
			if strings.TrimSpace(token) == "" {
				continue
			}
		}
		if tokenWidth <= limit {
			b.add(token, tokenWidth)
			continue
		}
		for _, chunk := range splitTokenByWidth(token, limit, face) {
			chunkWidth := face.TextWidth(chunk)
			if b.width > 0 && b.width+chunkWidth > limit {
				b.emit(false)
			}
			b.add(chunk, chunkWidth)
		}
	}
	b.emit(true)
	return b.lines
}

// tokenizeContent 将文本拆成空白/非空白交替的片段，换行单独成为一个 token。
func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() > 0 && lastWasSpace != isSpace {
			flush()
		}
		lastWasSpace = isSpace
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face measurer) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var current []rune
	for _, r := range token {
		current = append(current, r)
		if len(current) > 1 && face.TextWidth(string(current)) > limit {
			parts = append(parts, string(current[:len(current)-1]))
			current = []rune{r}
		}
	}
	if len(current) > 0 {
		parts = append(parts, string(current))
	}
	return parts
}
