package element

import "sync/atomic"

// HeightHint remembers the backing height of the last raster element that was
// detached, so the next one starts at a plausible height instead of zero.
// It is best effort: concurrent writers race and the last one wins.
type HeightHint struct {
	h atomic.Int64
}

// Load returns the stored height in device pixels, 0 if none.
func (h *HeightHint) Load() int { return int(h.h.Load()) }

// Store records a height. Negative values are stored as 0.
func (h *HeightHint) Store(px int) {
	if px < 0 {
		px = 0
	}
	h.h.Store(int64(px))
}

// Reset forgets the stored height.
func (h *HeightHint) Reset() { h.h.Store(0) }
