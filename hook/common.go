// Package hook locates code and data inside a versioned third-party
// executable and rewrites instructions at those locations to redirect
// execution into replacement code.
//
// Patches are declared as immutable Signatures, typically constructed
// at package-initialization time. Each Signature pairs a lookup
// strategy (a stable versioned ID, or a byte-pattern scan) with a hook
// encoding from the Type catalog, a reserved patch window, and optional
// write-once output slots. An Applier resolves and installs an ordered
// table of Signatures in one pass during plugin attachment.
//
// Every fault is fatal to the whole batch: a partially patched
// executable is worse than an unpatched one. The "OrExit" entry points
// escalate errors through DefaultExitFn.
package hook

import "log"

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

// nopOpcode pads the unused tail of every patch window so that no
// fragment of the original instruction stream survives inside it.
const nopOpcode = 0x90

// AddressDB translates stable numeric IDs into absolute addresses
// valid for the currently loaded executable build. The versiondb
// package provides an implementation.
type AddressDB interface {
	FindAddressByID(id uint64) (uintptr, bool)
}

// Scanner finds the single match of a byte-pattern signature within
// the executable's code region. The sigscan package provides an
// implementation.
type Scanner interface {
	FindUnique(signature string) (uintptr, error)
}

// MemoryReader reads an integer of the specified size in bytes from
// executable memory. A size of zero means the platform pointer size.
// It is consulted when a pattern locator chases one level of
// indirection.
type MemoryReader interface {
	ReadPointer(addr uintptr, size int) (uintptr, error)
}

// CodeWriter safely writes hook encodings and filler bytes into
// executable memory. Implementations own all permission handling and
// atomicity concerns. The memory package provides an implementation.
type CodeWriter interface {
	WriteShortJump(addr uintptr, target uintptr) error
	WriteLongJump(addr uintptr, target uintptr) error
	WriteDirectJump(addr uintptr, target uintptr) error
	WriteShortCall(addr uintptr, target uintptr) error
	WriteLongCall(addr uintptr, target uintptr) error
	WriteDirectCall(addr uintptr, target uintptr) error
	Fill(addr uintptr, b byte, numBytes int) error
}
