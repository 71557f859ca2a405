package memory

import (
	"encoding/binary"
	"fmt"
)

// NewImage creates an Image over the specified bytes, which are treated
// as residing at the specified base address. The Image aliases data; it
// does not copy it.
func NewImage(base uintptr, data []byte) *Image {
	return &Image{
		base: base,
		data: data,
	}
}

// Image is a bounds-checked window onto a contiguous range of an
// executable's code or data bytes. All addresses accepted by its methods
// are absolute; they are translated internally using the Image's base
// address.
//
// An Image backed by a plain []byte doubles as a test fixture for code
// that would otherwise need a live process to exercise.
type Image struct {
	base uintptr
	data []byte
}

// Base returns the address of the first byte of the Image.
func (o *Image) Base() uintptr {
	return o.base
}

// Size returns the number of bytes the Image spans.
func (o *Image) Size() int {
	return len(o.data)
}

// Bytes returns the underlying bytes. Mutating the result mutates
// the Image.
func (o *Image) Bytes() []byte {
	return o.data
}

// Contains returns true when [addr, addr+numBytes) lies fully within
// the Image.
func (o *Image) Contains(addr uintptr, numBytes int) bool {
	if numBytes < 0 || addr < o.base {
		return false
	}

	offset := int(addr - o.base)

	return offset <= len(o.data) && numBytes <= len(o.data)-offset
}

// ReadAt copies len(p) bytes starting at the specified address into p.
func (o *Image) ReadAt(addr uintptr, p []byte) error {
	if !o.Contains(addr, len(p)) {
		return fmt.Errorf("read of %d bytes at 0x%x is outside the image (base: 0x%x, size: 0x%x)",
			len(p), addr, o.base, len(o.data))
	}

	copy(p, o.data[addr-o.base:])

	return nil
}

// WriteAt copies p into the Image starting at the specified address.
func (o *Image) WriteAt(addr uintptr, p []byte) error {
	if !o.Contains(addr, len(p)) {
		return fmt.Errorf("write of %d bytes at 0x%x is outside the image (base: 0x%x, size: 0x%x)",
			len(p), addr, o.base, len(o.data))
	}

	copy(o.data[addr-o.base:], p)

	return nil
}

// Fill overwrites numBytes bytes starting at the specified address with
// the byte value b.
func (o *Image) Fill(addr uintptr, b byte, numBytes int) error {
	if !o.Contains(addr, numBytes) {
		return fmt.Errorf("fill of %d bytes at 0x%x is outside the image (base: 0x%x, size: 0x%x)",
			numBytes, addr, o.base, len(o.data))
	}

	start := int(addr - o.base)
	for i := start; i < start+numBytes; i++ {
		o.data[i] = b
	}

	return nil
}

// ReadUint reads a little-endian unsigned integer of the specified size
// in bytes (1, 2, 4, or 8) from the specified address.
func (o *Image) ReadUint(addr uintptr, size int) (uint64, error) {
	buf := make([]byte, 8)

	switch size {
	case 1, 2, 4, 8:
		err := o.ReadAt(addr, buf[0:size])
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unsupported integer size: %d", size)
	}

	return binary.LittleEndian.Uint64(buf), nil
}

// ReadPointer reads a pointer stored at the specified address. When size
// is zero, the platform pointer size (8) is assumed. This satisfies the
// memory-reader requirement of the hook package's resolver.
func (o *Image) ReadPointer(addr uintptr, size int) (uintptr, error) {
	if size == 0 {
		size = 8
	}

	value, err := o.ReadUint(addr, size)
	if err != nil {
		return 0, fmt.Errorf("failed to read %d byte pointer at 0x%x - %w",
			size, addr, err)
	}

	return uintptr(value), nil
}
