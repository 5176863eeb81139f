package element

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ByLCY/papyrender/render"
)

func solid(w, h int, c color.NRGBA) render.Image {
	pix := make([]uint8, 4*w*h)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return render.Image{Width: w, Height: h, Pix: pix}
}

func TestBlitResizesToImage(t *testing.T) {
	s := NewSurface(DefaultSurfaceWidth, 150)
	require.False(t, s.Smoothing())

	red := color.NRGBA{R: 255, A: 255}
	require.NoError(t, s.Blit(solid(4, 3, red)))
	require.Equal(t, 4, s.Width())
	require.Equal(t, 3, s.Height())
	require.True(t, s.Smoothing())
	require.Equal(t, red, s.Snapshot().NRGBAAt(3, 2))

	require.ErrorIs(t, s.Blit(render.Image{Width: 2, Height: 2, Pix: make([]uint8, 3)}), ErrInvalidDimensions)
	require.Equal(t, 4, s.Width(), "a rejected blit leaves the surface alone")
}

func TestResizeClears(t *testing.T) {
	s := NewSurface(0, 0)
	require.NoError(t, s.Blit(solid(2, 2, color.NRGBA{G: 255, A: 255})))
	require.NoError(t, s.Resize(2, 2))
	require.Equal(t, color.NRGBA{}, s.Snapshot().NRGBAAt(0, 0))
	require.ErrorIs(t, s.Resize(-1, 2), ErrInvalidDimensions)
}

func TestBlitRejectsOversizedImages(t *testing.T) {
	s := NewSurface(4, 4)
	for _, img := range []render.Image{
		{Width: MaxSurfaceSide + 1, Height: 1},
		{Width: 1, Height: -1},
		{Width: MaxSurfaceSide, Height: MaxSurfaceSide},
		{Width: math.MaxInt, Height: math.MaxInt},
	} {
		require.ErrorIs(t, s.Blit(img), ErrInvalidDimensions, "%dx%d", img.Width, img.Height)
	}
	require.Equal(t, 4, s.Width())
	require.ErrorIs(t, s.Resize(MaxSurfaceSide+1, 1), ErrInvalidDimensions)
}
