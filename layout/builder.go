package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/papyrender/binding"
	"github.com/ByLCY/papyrender/dsl"
)

const (
	paragraphSpacing = 0.6 // 段落间距，字号倍数
	defaultRuleWidth = 0.2
)

var defaultColor = Color{R: 30, G: 30, B: 30}

// style 是排版过程中随赋值语句变化的当前样式。
type style struct {
	font       FontResource
	fontSize   float64 // mm
	lineHeight LineHeightSpec
	color      Color
	align      string
	wrap       string
}

type cursor struct {
	opts   BuildOptions
	style  style
	y      float64
	maxW   float64
	result *Result
	blocks int
}

// Build 将片段 AST 排版为可绘制的结果。
// 块级模式下宽度固定为 opts.Width，高度随内容增长；
// Inline 模式下所有内容排在一行，高度固定为 opts.Height，宽度取内容宽度。
func Build(frag *dsl.Fragment, opts BuildOptions) (*Result, error) {
	if frag == nil {
		return nil, fmt.Errorf("片段为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("layout: 字号必须为正数，实际 %g", opts.FontSize)
	}
	if opts.Inline && opts.Height <= 0 {
		return nil, fmt.Errorf("layout: 行内模式需要正的行高，实际 %g", opts.Height)
	}
	if !opts.Inline && opts.Width <= 0 {
		return nil, fmt.Errorf("layout: 块级模式需要正的宽度，实际 %g", opts.Width)
	}

	c := &cursor{
		opts: opts,
		style: style{
			font:     opts.Font,
			fontSize: opts.FontSize,
			color:    defaultColor,
			wrap:     "anywhere",
		},
		result: &Result{},
	}
	if opts.Inline {
		c.style.wrap = "nowrap"
	}

	for _, stmt := range frag.Statements {
		if err := c.statement(stmt); err != nil {
			return nil, err
		}
	}

	if opts.Inline {
		c.result.Width = math.Max(c.maxW, 1)
		c.result.Height = opts.Height
	} else {
		c.result.Width = opts.Width
		c.result.Height = math.Max(c.y, 1)
	}
	return c.result, nil
}

func (c *cursor) statement(stmt *dsl.Statement) error {
	switch {
	case stmt.Assignment != nil:
		return c.assign(stmt.Assignment.Key, stmt.Assignment.Value.Raw(), &c.style)
	case stmt.Text != nil:
		return c.paragraph(string(stmt.Text.Value), c.style)
	case stmt.Command != nil:
		return c.command(stmt.Command)
	}
	return nil
}

func (c *cursor) assign(key, value string, st *style) error {
	switch key {
	case "font":
		st.font = FontResource{Name: value, Src: "builtin:" + value, Style: st.font.Style}
	case "weight", "style":
		st.font.Style = value
	case "size":
		l, ok := ParseRawLengthStr(value)
		if !ok || l.Value <= 0 {
			return fmt.Errorf("无法解析字号 %q", value)
		}
		st.fontSize = l.Resolve(c.opts.FontSize)
	case "leading", "line-height":
		spec, ok := ParseLineHeight(value)
		if !ok {
			return fmt.Errorf("无法解析行高 %q", value)
		}
		st.lineHeight = spec
	case "color":
		col, err := parseColor(value)
		if err != nil {
			return err
		}
		st.color = col
	case "align":
		st.align = normalizeAlign(value)
	case "wrap":
		if !c.opts.Inline {
			st.wrap = normalizeWrap(value)
		}
	default:
		return fmt.Errorf("未知属性 %s", key)
	}
	return nil
}

func (c *cursor) command(cmd *dsl.Command) error {
	switch cmd.Name {
	case "text":
		st := c.style
		if err := c.applyArgs(cmd, &st); err != nil {
			return err
		}
		return c.paragraph(extractText(cmd.Block), st)
	case "gap":
		if len(cmd.Args) == 0 {
			return fmt.Errorf("%s: gap 需要一个长度参数", cmd.Pos)
		}
		l, ok := ParseRawLengthStr(cmd.Args[0].Value)
		if !ok {
			return fmt.Errorf("%s: 无法解析长度 %q", cmd.Pos, cmd.Args[0].Value)
		}
		if !c.opts.Inline {
			c.y += l.Resolve(c.style.fontSize)
		}
		return nil
	case "rule":
		return c.rule(cmd)
	case "image":
		return c.image(cmd)
	default:
		return fmt.Errorf("%s: 未知命令 %s", cmd.Pos, cmd.Name)
	}
}

// applyArgs 解析形如 "size 1.4x color #333" 的键值参数。
func (c *cursor) applyArgs(cmd *dsl.Command, st *style) error {
	args := cmd.Args
	if len(args)%2 != 0 {
		return fmt.Errorf("%s: %s 的参数必须成对出现", cmd.Pos, cmd.Name)
	}
	for i := 0; i < len(args); i += 2 {
		if err := c.assign(args[i].Value, args[i+1].Value, st); err != nil {
			return fmt.Errorf("%s: %w", args[i].Pos, err)
		}
	}
	return nil
}

func (c *cursor) paragraph(content string, st style) error {
	content = binding.Interpolate(content, c.opts.Data)
	width := c.opts.Width
	if c.opts.Inline {
		width = 0
	}
	lineHeight := st.lineHeight.Resolve(st.fontSize)
	lines, err := c.opts.Typesetter.LayoutLines(content, width, st.font, st.fontSize, lineHeight, st.wrap)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		lines = []TextLine{{Height: st.fontSize}}
	}

	if c.opts.Inline {
		return c.inlineRun(content, lines, st, lineHeight)
	}

	if c.blocks > 0 {
		c.y += st.fontSize * paragraphSpacing
	}
	c.blocks++

	total := 0.0
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = st.fontSize
		}
		if i == 0 {
			lines[i].GapBefore = 0
		}
		total += lines[i].GapBefore + lines[i].Height
	}
	c.result.Texts = append(c.result.Texts, TextBox{
		Content:    content,
		X:          0,
		Y:          c.y,
		Width:      width,
		LineHeight: lineHeight,
		Font:       st.font,
		FontSize:   st.fontSize,
		Color:      st.color,
		Lines:      lines,
		Height:     total,
		Align:      st.align,
	})
	c.y += total
	c.maxW = math.Max(c.maxW, width)
	return nil
}

// inlineRun 把一段文本接在当前行末尾，并在行高内垂直居中。
func (c *cursor) inlineRun(content string, lines []TextLine, st style, lineHeight float64) error {
	line := lines[0]
	if len(lines) > 1 {
		parts := make([]string, len(lines))
		line.Width = 0
		for i, l := range lines {
			parts[i] = l.Content
			line.Width += l.Width
		}
		line.Content = strings.Join(parts, " ")
	}
	if line.Height <= 0 {
		line.Height = st.fontSize
	}
	line.GapBefore = 0
	y := math.Max((c.opts.Height-line.Height)/2, 0)
	c.result.Texts = append(c.result.Texts, TextBox{
		Content:    content,
		X:          c.maxW,
		Y:          y,
		Width:      line.Width,
		LineHeight: lineHeight,
		Font:       st.font,
		FontSize:   st.fontSize,
		Color:      st.color,
		Lines:      []TextLine{line},
		Height:     line.Height,
	})
	c.maxW += line.Width
	return nil
}

func (c *cursor) rule(cmd *dsl.Command) error {
	attrs, err := pairs(cmd)
	if err != nil {
		return err
	}
	w := defaultRuleWidth
	if v, ok := attrs["width"]; ok {
		l, ok := ParseRawLengthStr(v)
		if !ok {
			return fmt.Errorf("%s: 无法解析线宽 %q", cmd.Pos, v)
		}
		w = l.Resolve(c.style.fontSize)
	}
	col := c.style.color
	if v, ok := attrs["color"]; ok {
		if col, err = parseColor(v); err != nil {
			return err
		}
	}
	if c.opts.Inline {
		return nil
	}
	if c.blocks > 0 {
		c.y += c.style.fontSize * paragraphSpacing
	}
	c.blocks++
	y := c.y + w/2
	c.result.Lines = append(c.result.Lines, Line{X1: 0, Y1: y, X2: c.opts.Width, Y2: y, Color: col, Width: w})
	c.y += w
	return nil
}

func (c *cursor) image(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 || cmd.Args[0].Type != "String" {
		return fmt.Errorf("%s: image 需要一个字符串路径", cmd.Pos)
	}
	path := cmd.Args[0].Value
	rest := &dsl.Command{Pos: cmd.Pos, Name: cmd.Name, Args: cmd.Args[1:]}
	attrs, err := pairs(rest)
	if err != nil {
		return err
	}
	var width, height float64
	if v, ok := attrs["width"]; ok {
		l, ok := ParseRawLengthStr(v)
		if !ok {
			return fmt.Errorf("%s: 无法解析图片宽度 %q", cmd.Pos, v)
		}
		width = l.Resolve(c.style.fontSize)
	}
	if v, ok := attrs["height"]; ok {
		l, ok := ParseRawLengthStr(v)
		if !ok {
			return fmt.Errorf("%s: 无法解析图片高度 %q", cmd.Pos, v)
		}
		height = l.Resolve(c.style.fontSize)
	}
	if !c.opts.Inline && height <= 0 {
		return fmt.Errorf("%s: 块级图片需要 height 参数", cmd.Pos)
	}
	if c.opts.Inline {
		if height <= 0 || height > c.opts.Height {
			height = c.opts.Height
		}
		c.result.Images = append(c.result.Images, ImageBox{Path: path, X: c.maxW, Y: (c.opts.Height - height) / 2, Width: width, Height: height})
		c.maxW += width
		return nil
	}
	if c.blocks > 0 {
		c.y += c.style.fontSize * paragraphSpacing
	}
	c.blocks++
	x := alignOffset(c.opts.Width, width, c.style.align)
	c.result.Images = append(c.result.Images, ImageBox{Path: path, X: x, Y: c.y, Width: width, Height: height})
	c.y += height
	return nil
}

func pairs(cmd *dsl.Command) (map[string]string, error) {
	out := map[string]string{}
	if len(cmd.Args)%2 != 0 {
		return nil, fmt.Errorf("%s: %s 的参数必须成对出现", cmd.Pos, cmd.Name)
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		out[cmd.Args[i].Value] = cmd.Args[i+1].Value
	}
	return out, nil
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func normalizeWrap(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "nowrap", "none":
		return "nowrap"
	case "break-word", "break-all":
		return "break-word"
	default:
		return "anywhere"
	}
}

func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return "center"
	case "right", "end":
		return "right"
	default:
		return ""
	}
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch align {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}

func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r, errR := strconv.ParseUint(strings.Repeat(value[0:1], 2), 16, 8)
		g, errG := strconv.ParseUint(strings.Repeat(value[1:2], 2), 16, 8)
		b, errB := strconv.ParseUint(strings.Repeat(value[2:3], 2), 16, 8)
		if errR != nil || errG != nil || errB != nil {
			break
		}
		return Color{R: int(r), G: int(g), B: int(b)}, nil
	case 6, 8:
		v, err := strconv.ParseUint(value[0:6], 16, 32)
		if err != nil {
			break
		}
		return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
	}
	return Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
}
