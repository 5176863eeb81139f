package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/papyrender/fonts"
	"github.com/ByLCY/papyrender/layout"
	"github.com/ByLCY/papyrender/renderer"
)

const defaultLineWidth = 0.2

// Renderer draws fragment layouts via github.com/tdewolff/canvas.
// It is safe for concurrent use; font families are cached across calls.
type Renderer struct {
	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	Fonts  map[string]Resource // extra fonts accessible via builtin:<name>
	Images map[string]Resource // images accessible via builtin:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that only knows the bundled fonts.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected resources.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		fontBlobs:    map[string][]byte{},
		imageBlobs:   map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	ingest(r.fontBlobs, opts.Fonts)
	ingest(r.imageBlobs, opts.Images)
	return r
}

func ingest(dst map[string][]byte, src map[string]Resource) {
	for name, res := range src {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			dst[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			// 读取失败时忽略，真正使用时会报找不到资源
			if data, _ := os.ReadFile(res.Path); len(data) > 0 {
				dst[name] = data
			}
		}
	}
}

// RenderImage rasterizes the layout at dpmm pixels per millimetre.
func (r *Renderer) RenderImage(result *layout.Result, baseDir string, dpmm float64) (image.Image, error) {
	if dpmm <= 0 {
		return nil, fmt.Errorf("分辨率必须为正数，实际 %g", dpmm)
	}
	c, err := r.draw(result, baseDir)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(dpmm), canvas.DefaultColorSpace), nil
}

// RenderSVG writes the layout as a standalone SVG document.
func (r *Renderer) RenderSVG(result *layout.Result, baseDir string) ([]byte, error) {
	c, err := r.draw(result, baseDir)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, c.W, c.H, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) draw(result *layout.Result, baseDir string) (*canvas.Canvas, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if result.Width <= 0 || result.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %gx%g", result.Width, result.Height)
	}
	c := canvas.New(result.Width, result.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	// 先画分隔线作为背景，再画文本与图片
	r.drawLines(ctx, result.Lines)
	for _, tb := range result.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return nil, err
		}
	}
	if err := r.drawImages(ctx, result.Images, baseDir); err != nil {
		return nil, err
	}
	return c, nil
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm），创建字体面时换算为 pt。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{R: 30, G: 30, B: 30})
	if err != nil {
		return nil, err
	}
	if wrap == "" {
		wrap = "anywhere"
	}
	lines := greedyWrapTokens(content, width, face, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := lineHeight - textHeight
	if leading < 0 {
		leading = 0
	}
	if len(lines) == 0 {
		lines = []layout.TextLine{{Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	face, err := r.fontFace(tb.Font, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch tb.Align {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	metrics := face.Metrics()
	cursorY := tb.Y
	for _, line := range tb.Lines {
		cursorY += line.GapBefore
		// 基线位置：行顶部加上字体上升部
		ctx.DrawText(anchorX, cursorY+metrics.Ascent, canvas.NewTextLine(face, line.Content, textAlign))
		cursorY += line.Height
	}
	return nil
}

func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox, baseDir string) error {
	for _, img := range images {
		data, err := r.loadImage(img.Path, baseDir)
		if err != nil {
			return err
		}
		px := data.Bounds()
		if px.Dx() == 0 || px.Dy() == 0 {
			continue
		}
		// 优先按高度换算分辨率，保证与布局占位一致
		dpmm := 1.0
		switch {
		case img.Height > 0:
			dpmm = float64(px.Dy()) / img.Height
		case img.Width > 0:
			dpmm = float64(px.Dx()) / img.Width
		}
		ctx.DrawImage(img.X, img.Y, data, canvas.DPMM(dpmm))
	}
	return nil
}

func (r *Renderer) loadImage(orig, baseDir string) (image.Image, error) {
	if strings.HasPrefix(orig, "builtin:") {
		name := strings.TrimPrefix(orig, "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 %s", orig)
		}
		img, _, err := image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 %s 失败: %w", orig, err)
		}
		return img, nil
	}
	if baseDir == "" && !filepath.IsAbs(orig) {
		return nil, fmt.Errorf("未指定文档路径时不允许使用相对图片路径：%s", orig)
	}
	path := orig
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", orig, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", orig, err)
	}
	return img, nil
}

func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultLineWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	name := font.Name
	if name == "" {
		name = fonts.Default
	}
	family := canvas.NewFontFamily(name)
	data, err := r.loadFontBytes(font)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	// 内置字体按字重选择了独立文件，这里统一以常规样式载入
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("载入字体 %s 失败: %w", name, err)
	}
	entry := &fontFamilyEntry{family: family, style: canvas.FontRegular}
	r.fontFamilies[key] = entry
	return entry.family, entry.style, nil
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	src := font.Src
	if src == "" {
		src = "builtin:" + font.Name
	}
	if strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(src, "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return fonts.Load(name, font.Style)
	}
	return os.ReadFile(src)
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, strings.ToLower(font.Style))
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
