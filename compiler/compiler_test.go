package compiler

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ByLCY/papyrender/render"
)

const sample = `size: 1.2x
"Hello, papyrus."
rule
text align center color #336699 { "centred" }`

func TestCompileRasterMatchesRequestedWidth(t *testing.T) {
	p := NewPapyrus(Options{Format: render.FormatImage})
	res, err := p.Compile(context.Background(), render.Request{Source: sample, Size: 200, Display: true, FontSize: 16})
	require.NoError(t, err)

	img, ok := res.(render.Image)
	require.True(t, ok, "expected an image, got %T", res)
	require.InDelta(t, 200, img.Width, 1)
	require.Greater(t, img.Height, 0)
	require.Len(t, img.Pix, 4*img.Width*img.Height)
}

func TestCompilePixelRatioScalesRaster(t *testing.T) {
	p := NewPapyrus(Options{Format: render.FormatImage, PixelRatio: 2})
	res, err := p.Compile(context.Background(), render.Request{Source: `"x"`, Size: 20, FontSize: 10})
	require.NoError(t, err)
	img := res.(render.Image)
	require.InDelta(t, 40, img.Height, 1, "inline height is the line height times the ratio")
}

func TestCompileVectorDeclaresPoints(t *testing.T) {
	p := NewPapyrus(Options{Format: render.FormatSVG, Minify: true})
	res, err := p.Compile(context.Background(), render.Request{Source: sample, Size: 300, Display: true, FontSize: 16})
	require.NoError(t, err)

	m, ok := res.(render.Markup)
	require.True(t, ok, "expected markup, got %T", res)
	require.Contains(t, m.Text, `width="300.000pt"`)
	w, h, err := m.DeclaredSize()
	require.NoError(t, err)
	require.InDelta(t, 300, w, 0.01)
	require.Greater(t, h, 0.0)
}

func TestCompileInlineVectorHeightIsLineHeight(t *testing.T) {
	p := NewPapyrus(Options{Format: render.FormatSVG})
	res, err := p.Compile(context.Background(), render.Request{Source: `"a + b"`, Size: 24, FontSize: 16})
	require.NoError(t, err)
	_, h, err := res.(render.Markup).DeclaredSize()
	require.NoError(t, err)
	require.InDelta(t, 24, h, 0.01)
}

func TestCompileDiagnostics(t *testing.T) {
	p := NewPapyrus(Options{MaxSize: 1000})
	ctx := context.Background()

	_, err := p.Compile(ctx, render.Request{Source: `text {`, Size: 100, Display: true, FontSize: 16})
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, KindSyntax, d.Kind)

	_, err = p.Compile(ctx, render.Request{Source: `frobnicate`, Size: 100, Display: true, FontSize: 16})
	require.ErrorAs(t, err, &d)
	require.Equal(t, KindLayout, d.Kind)

	_, err = p.Compile(ctx, render.Request{Source: `"x"`, Size: 5000, Display: true, FontSize: 16})
	require.ErrorAs(t, err, &d)
	require.Equal(t, KindRange, d.Kind)
	require.True(t, strings.HasPrefix(err.Error(), "RangeError: "))

	_, err = p.Compile(ctx, render.Request{Source: `"x"`, Size: math.NaN(), FontSize: 16})
	require.ErrorAs(t, err, &d)
	require.Equal(t, KindRange, d.Kind)
}

func TestCompileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPapyrus(Options{}).Compile(ctx, render.Request{Source: `"x"`, Size: 10, FontSize: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileFillsPlaceholders(t *testing.T) {
	plain := NewPapyrus(Options{Format: render.FormatSVG})
	bound := NewPapyrus(Options{Format: render.FormatSVG, Data: map[string]any{"who": "a much longer name than the placeholder"}})
	req := render.Request{Source: `"${who}"`, Size: 20, FontSize: 12}

	a, err := plain.Compile(context.Background(), req)
	require.NoError(t, err)
	b, err := bound.Compile(context.Background(), req)
	require.NoError(t, err)
	wa, _, _ := a.(render.Markup).DeclaredSize()
	wb, _, _ := b.(render.Markup).DeclaredSize()
	require.Greater(t, wb, wa)
}

func TestGuardMarksFailuresUncaught(t *testing.T) {
	g := Guard(render.CompilerFunc(func(context.Context, render.Request) (render.Result, error) {
		return nil, diagnosef(KindRange, "bad index")
	}))
	_, err := g.Compile(context.Background(), render.Request{})
	require.EqualError(t, err, "Uncaught RangeError: bad index")
	require.Equal(t, "RangeError: bad index", render.Message(err))
}

func TestGuardRecoversPanics(t *testing.T) {
	g := Guard(render.CompilerFunc(func(context.Context, render.Request) (render.Result, error) {
		panic("boom")
	}))
	_, err := g.Compile(context.Background(), render.Request{})
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, KindInternal, d.Kind)
	require.Equal(t, "InternalError: boom", render.Message(err))
}

func TestGuardPassesCancellationThrough(t *testing.T) {
	g := Guard(render.CompilerFunc(func(ctx context.Context, _ render.Request) (render.Result, error) {
		return nil, context.Canceled
	}))
	_, err := g.Compile(context.Background(), render.Request{})
	require.True(t, errors.Is(err, context.Canceled))
	var ue *render.UncaughtError
	require.False(t, errors.As(err, &ue))
}

func TestCacheStoresOnlySuccesses(t *testing.T) {
	var calls atomic.Int32
	next := render.CompilerFunc(func(_ context.Context, req render.Request) (render.Result, error) {
		calls.Add(1)
		if req.Source == "bad" {
			return nil, errors.New("nope")
		}
		return render.Markup{Text: req.Source}, nil
	})
	c, err := NewCache(next, 2)
	require.NoError(t, err)
	ctx := context.Background()

	good := render.Request{Source: "good", Size: 10, FontSize: 10}
	for i := 0; i < 3; i++ {
		res, err := c.Compile(ctx, good)
		require.NoError(t, err)
		require.Equal(t, render.Markup{Text: "good"}, res)
	}
	require.EqualValues(t, 1, calls.Load())

	bad := render.Request{Source: "bad"}
	for i := 0; i < 2; i++ {
		_, err := c.Compile(ctx, bad)
		require.Error(t, err)
	}
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, 1, c.Len())

	// 尺寸不同即为不同请求
	wider := good
	wider.Size = 20
	_, err = c.Compile(ctx, wider)
	require.NoError(t, err)
	require.EqualValues(t, 4, calls.Load())

	c.Purge()
	require.Equal(t, 0, c.Len())
}

func TestNewCacheRejectsBadSize(t *testing.T) {
	_, err := NewCache(render.CompilerFunc(nil), 0)
	require.Error(t, err)
}

func TestRewriteRootSize(t *testing.T) {
	in := `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10mm" height='5mm' viewBox="0 0 10 5"><rect width="1" height="1"/></svg>`
	out, err := rewriteRootSize(in, 28.3466, 14.17)
	require.NoError(t, err)
	require.Contains(t, out, `width="28.347pt"`)
	require.Contains(t, out, `height="14.170pt"`)
	require.Contains(t, out, `<rect width="1" height="1"/>`, "children must be untouched")

	out, err = rewriteRootSize(`<svg viewBox="0 0 1 1"></svg>`, 1, 2)
	require.NoError(t, err)
	w, h, err := render.Markup{Text: out}.DeclaredSize()
	require.NoError(t, err)
	require.InDelta(t, 1, w, 1e-9)
	require.InDelta(t, 2, h, 1e-9)

	_, err = rewriteRootSize(`<div/>`, 1, 1)
	require.Error(t, err)
}

func TestNewAppliesGuard(t *testing.T) {
	c, err := New(Options{}, 4)
	require.NoError(t, err)
	_, err = c.Compile(context.Background(), render.Request{Source: `text {`, Size: 10, FontSize: 10})
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), render.UncaughtPrefix+KindSyntax))
}

func TestNewFormatsBuildsOneCompilerPerFormat(t *testing.T) {
	set, err := NewFormats(Options{Format: render.FormatImage}, 4)
	require.NoError(t, err)
	require.Len(t, set, 2)

	req := render.Request{Source: `"x"`, Size: 20, FontSize: 10}
	for _, f := range []render.Format{render.FormatImage, render.FormatSVG} {
		res, err := set[f].Compile(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, f, res.Format())
	}

	_, err = NewFormats(Options{}, -1)
	require.NoError(t, err, "a non-positive cache size disables the cache")
}
