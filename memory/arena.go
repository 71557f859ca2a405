package memory

import (
	"fmt"
)

// NewArena creates an Arena over the specified Image range. The range
// must lie fully within the Image.
//
// The Arena hands out small allocations that the 5 and 6 byte hook
// encodings use for absolute-target slots and out-of-range jump stubs.
// It corresponds to the branch-trampoline buffer a host loader reserves
// near the executable image; allocations are never freed.
func NewArena(img *Image, addr uintptr, numBytes int) (*Arena, error) {
	if !img.Contains(addr, numBytes) {
		return nil, fmt.Errorf("arena of %d bytes at 0x%x is outside the image (base: 0x%x, size: 0x%x)",
			numBytes, addr, img.Base(), img.Size())
	}

	return &Arena{
		img:  img,
		next: addr,
		end:  addr + uintptr(numBytes),
	}, nil
}

// NewArenaOrExit calls NewArena, invoking DefaultExitFn if an error occurs.
func NewArenaOrExit(img *Image, addr uintptr, numBytes int) *Arena {
	arena, err := NewArena(img, addr, numBytes)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to create arena - %w", err))
	}
	return arena
}

// Arena is a bump allocator over a reserved range of an Image.
type Arena struct {
	img  *Image
	next uintptr
	end  uintptr
}

// Remaining returns the number of unallocated bytes.
func (o *Arena) Remaining() int {
	return int(o.end - o.next)
}

// Take allocates numBytes bytes, returning the address of the
// allocation.
func (o *Arena) Take(numBytes int) (uintptr, error) {
	if numBytes <= 0 {
		return 0, fmt.Errorf("allocation size must be greater than zero (got %d)", numBytes)
	}

	if o.Remaining() < numBytes {
		return 0, fmt.Errorf("arena exhausted - %d bytes requested, %d remaining",
			numBytes, o.Remaining())
	}

	addr := o.next
	o.next += uintptr(numBytes)

	return addr, nil
}

// TakeSlot allocates an 8 byte slot holding the specified address,
// suitable as the target of a rip-relative indirect branch.
func (o *Arena) TakeSlot(target uintptr) (uintptr, error) {
	addr, err := o.Take(8)
	if err != nil {
		return 0, err
	}

	err = o.img.WriteAt(addr, encodeUint64(uint64(target)))
	if err != nil {
		return 0, err
	}

	return addr, nil
}
