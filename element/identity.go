package element

import (
	"strconv"
	"sync/atomic"
)

// ID identifies one element occurrence and keys its render lock.
type ID uint64

// String returns the id attribute value of the element.
func (id ID) String() string {
	return "PapyrusRenderElement-" + strconv.FormatUint(uint64(id), 10)
}

// IDAllocator hands out monotonically increasing identities starting at 0.
// An identity is never handed out twice. The zero value is ready to use.
type IDAllocator struct {
	next atomic.Uint64
}

// Next allocates a fresh identity.
func (a *IDAllocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}
