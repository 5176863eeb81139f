// Package render defines the contract between an embedded element and the
// compiler that turns fragment source into pixels or markup.
package render

import (
	"context"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Format selects which kind of output an element expects.
type Format int

const (
	// FormatImage asks for a raster bitmap painted onto a canvas surface.
	FormatImage Format = iota
	// FormatSVG asks for vector markup inserted as the element's child.
	FormatSVG
)

func (f Format) String() string {
	switch f {
	case FormatImage:
		return "image"
	case FormatSVG:
		return "svg"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts the attribute spellings used in documents.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "png", "canvas":
		return FormatImage, nil
	case "svg", "vector":
		return FormatSVG, nil
	default:
		return 0, fmt.Errorf("render: unknown format %q", s)
	}
}

// Request is built fresh for every render attempt and never mutated.
// Size is the content width in display mode and the line height inline,
// both in CSS pixels, as is FontSize.
type Request struct {
	Path     string
	Source   string
	Size     float64
	Display  bool
	FontSize float64
}

// Result is either an Image or a Markup. The unexported method keeps the set closed.
type Result interface {
	Format() Format
	isResult()
}

// Image is a straight-alpha RGBA bitmap, four bytes per pixel, rows packed.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

func (Image) Format() Format { return FormatImage }
func (Image) isResult()      {}

// NRGBA exposes the pixels as an image without copying.
func (i Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: i.Pix, Stride: 4 * i.Width, Rect: image.Rect(0, 0, i.Width, i.Height)}
}

// NewImage copies any image into an Image anchored at the origin.
func NewImage(src image.Image) Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return Image{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// Markup is vector output whose root element declares width and height in pt.
type Markup struct {
	Text string
}

func (Markup) Format() Format { return FormatSVG }
func (Markup) isResult()      {}

// Compiler turns a request into a result. Implementations should return
// promptly once ctx is cancelled; the caller discards late results anyway.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Result, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, req Request) (Result, error)

func (f CompilerFunc) Compile(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
