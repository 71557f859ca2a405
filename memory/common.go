package memory

import "log"

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

// Nop is the single-byte x86 no-op opcode used to pad the unused tail
// of a patch window.
const Nop = 0x90
