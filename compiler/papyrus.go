package compiler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/ByLCY/papyrender/dsl"
	"github.com/ByLCY/papyrender/fonts"
	"github.com/ByLCY/papyrender/layout"
	"github.com/ByLCY/papyrender/render"
	"github.com/ByLCY/papyrender/renderer"
	canvasrenderer "github.com/ByLCY/papyrender/renderer/canvas"
)

const svgMediaType = "image/svg+xml"

// Options configures the papyrus fragment compiler.
type Options struct {
	// Format is the output kind produced for every request.
	Format render.Format
	// Font is the builtin font used before any font: assignment.
	Font string
	// PixelRatio multiplies raster resolution (device pixels per CSS pixel).
	PixelRatio float64
	// Minify shrinks vector output before it is handed to the element.
	Minify bool
	// MaxSize caps the requested size in CSS pixels; larger requests fail.
	MaxSize float64
	// Fonts and Images are extra resources reachable via builtin:<name>.
	Fonts  map[string]canvasrenderer.Resource
	Images map[string]canvasrenderer.Resource
	// Data fills ${path} placeholders in fragment text.
	Data map[string]any
}

// Papyrus compiles fragment source with the papyrus DSL and the canvas renderer.
// Host lengths are CSS pixels; one CSS pixel is laid out as one point, so
// vector output declared in pt divided by the font size gives em directly.
//
// Compiles run one at a time, like a single compile worker shared by every
// element; callers queue on it and give up when their context ends.
type Papyrus struct {
	opts     Options
	renderer backend
	minifier *minify.M
	worker   chan struct{}
}

// backend 同时负责排版与绘制。
type backend interface {
	renderer.Renderer
	layout.Typesetter
}

var _ render.Compiler = (*Papyrus)(nil)

// NewPapyrus creates the raw compiler. Most callers want New, which adds the
// result cache and the error boundary.
func NewPapyrus(opts Options) *Papyrus {
	if opts.Font == "" {
		opts.Font = fonts.Default
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	p := &Papyrus{
		opts:     opts,
		worker:   make(chan struct{}, 1),
		renderer: canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Fonts: opts.Fonts, Images: opts.Images}),
	}
	if opts.Minify {
		p.minifier = minify.New()
		p.minifier.AddFunc(svgMediaType, svg.Minify)
	}
	return p
}

// New returns the compiler used by elements: guarded, and cached when cacheSize > 0.
func New(opts Options, cacheSize int) (render.Compiler, error) {
	var c render.Compiler = NewPapyrus(opts)
	if cacheSize > 0 {
		cached, err := NewCache(c, cacheSize)
		if err != nil {
			return nil, err
		}
		c = cached
	}
	return Guard(c), nil
}

// NewFormats returns one compiler per output format, each built like New
// from opts with Format replaced. Elements in one document may ask for
// either format, so a document needs both.
func NewFormats(opts Options, cacheSize int) (map[render.Format]render.Compiler, error) {
	set := make(map[render.Format]render.Compiler, 2)
	for _, f := range []render.Format{render.FormatImage, render.FormatSVG} {
		o := opts
		o.Format = f
		c, err := New(o, cacheSize)
		if err != nil {
			return nil, fmt.Errorf("%s compiler: %w", f, err)
		}
		set[f] = c
	}
	return set, nil
}

// Compile implements render.Compiler.
func (p *Papyrus) Compile(ctx context.Context, req render.Request) (render.Result, error) {
	select {
	case p.worker <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.worker }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !(req.Size > 0) || !(req.FontSize > 0) {
		return nil, diagnosef(KindRange, "size %g and font size %g must be positive", req.Size, req.FontSize)
	}
	if p.opts.MaxSize > 0 && req.Size > p.opts.MaxSize {
		return nil, diagnosef(KindRange, "size %g exceeds the limit of %g", req.Size, p.opts.MaxSize)
	}

	frag, err := dsl.ParseString(req.Path, req.Source)
	if err != nil {
		return nil, diagnose(KindSyntax, err)
	}

	opts := layout.BuildOptions{
		Typesetter: p.renderer,
		FontSize:   pxToMM(req.FontSize),
		Font:       layout.FontResource{Name: p.opts.Font, Src: "builtin:" + p.opts.Font},
	}
	if p.opts.Data != nil {
		opts.Data = p.opts.Data
	}
	if req.Display {
		opts.Width = pxToMM(req.Size)
	} else {
		opts.Inline = true
		opts.Height = pxToMM(req.Size)
	}
	result, err := layout.Build(frag, opts)
	if err != nil {
		return nil, diagnose(KindLayout, err)
	}

	// 排版可能较慢，绘制前再确认一次是否已被取消
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baseDir := ""
	if req.Path != "" {
		baseDir = filepath.Dir(req.Path)
	}
	switch p.opts.Format {
	case render.FormatSVG:
		return p.vector(result, baseDir)
	default:
		return p.raster(result, baseDir)
	}
}

func (p *Papyrus) raster(result *layout.Result, baseDir string) (render.Result, error) {
	img, err := p.renderer.RenderImage(result, baseDir, layout.MmToPt*p.opts.PixelRatio)
	if err != nil {
		return nil, diagnose(KindRender, err)
	}
	return render.NewImage(img), nil
}

func (p *Papyrus) vector(result *layout.Result, baseDir string) (render.Result, error) {
	out, err := p.renderer.RenderSVG(result, baseDir)
	if err != nil {
		return nil, diagnose(KindRender, err)
	}
	markup := string(out)
	if p.minifier != nil {
		if markup, err = p.minifier.String(svgMediaType, markup); err != nil {
			return nil, diagnose(KindRender, fmt.Errorf("minify svg: %w", err))
		}
	}
	markup, err = rewriteRootSize(markup, result.Width*layout.MmToPt, result.Height*layout.MmToPt)
	if err != nil {
		return nil, diagnose(KindInternal, err)
	}
	m := render.Markup{Text: markup}
	if _, _, err := m.DeclaredSize(); err != nil {
		return nil, diagnose(KindInternal, err)
	}
	return m, nil
}

func pxToMM(px float64) float64 { return px * layout.PtToMm }
