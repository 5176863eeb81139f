package element

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/ByLCY/papyrender/render"
)

// DefaultSurfaceWidth is the backing width of a canvas nobody has drawn on yet.
const DefaultSurfaceWidth = 300

// Largest backing buffer a surface accepts, per side and in total pixels.
const (
	MaxSurfaceSide = 1 << 15
	MaxSurfaceArea = 1 << 28
)

// ErrInvalidDimensions is returned for negative or oversized surface sizes, or
// images whose pixel buffer does not match their dimensions.
var ErrInvalidDimensions = errors.New("element: invalid surface dimensions")

// Surface is the backing pixel buffer of a raster element. Its displayed size
// is the host's business; only the buffer dimensions are tracked here.
type Surface struct {
	mu        sync.RWMutex
	img       *image.NRGBA
	smoothing bool
}

// NewSurface creates a transparent surface. Zero dimensions are allowed.
func NewSurface(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the backing width in device pixels.
func (s *Surface) Width() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.Rect.Dx()
}

// Height returns the backing height in device pixels.
func (s *Surface) Height() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.Rect.Dy()
}

// Resize changes the backing buffer to exactly width×height. Like a canvas,
// resizing clears the content, even when the size is unchanged.
func (s *Surface) Resize(width, height int) error {
	if !validSize(width, height) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = image.NewNRGBA(image.Rect(0, 0, width, height))
	return nil
}

// Smoothing reports whether high quality resampling is enabled for display
// at a size other than the backing size. Blit turns it on.
func (s *Surface) Smoothing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.smoothing
}

// Blit resizes the surface to the image's dimensions, enables smoothing and
// copies the pixels at the origin.
func (s *Surface) Blit(img render.Image) error {
	if !validSize(img.Width, img.Height) || len(img.Pix) != 4*img.Width*img.Height {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidDimensions, img.Width, img.Height, len(img.Pix))
	}
	if err := s.Resize(img.Width, img.Height); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smoothing = true
	draw.Copy(s.img, image.Point{}, img.NRGBA(), image.Rect(0, 0, img.Width, img.Height), draw.Src, nil)
	return nil
}

// Snapshot returns a copy of the backing buffer.
func (s *Surface) Snapshot() *image.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewNRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

func validSize(width, height int) bool {
	if width < 0 || height < 0 || width > MaxSurfaceSide || height > MaxSurfaceSide {
		return false
	}
	return int64(width)*int64(height) <= MaxSurfaceArea
}
