//go:build !windows

package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// LiveImage creates an Image aliasing the calling process's own mapped
// memory at the specified address. Writes through the Image mutate the
// process directly; call MakeWritable first when the range covers
// read-only code pages.
func LiveImage(addr uintptr, numBytes int) *Image {
	return NewImage(addr, unsafe.Slice((*byte)(unsafe.Pointer(addr)), numBytes))
}

// MakeWritable flips every page overlapping [addr, addr+numBytes) to
// read+write+execute so hooks can be written into live code.
func MakeWritable(addr uintptr, numBytes int) error {
	return protectPages(addr, uintptr(numBytes),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC)
}

// RestoreExecutable flips every page overlapping [addr, addr+numBytes)
// back to read+execute once patching is complete.
func RestoreExecutable(addr uintptr, numBytes int) error {
	return protectPages(addr, uintptr(numBytes),
		unix.PROT_READ|unix.PROT_EXEC)
}

func protectPages(addr uintptr, size uintptr, prot int) error {
	pageSize := uintptr(unix.Getpagesize())

	start := pageSize * (addr / pageSize)
	length := pageSize * ((addr + size + pageSize - 1 - start) / pageSize)

	for i := uintptr(0); i < length; i += pageSize {
		page := unsafe.Slice((*byte)(unsafe.Pointer(start+i)), pageSize)

		err := unix.Mprotect(page, prot)
		if err != nil {
			return fmt.Errorf("failed to set protection 0x%x on page 0x%x - %w",
				prot, start+i, err)
		}
	}

	return nil
}
