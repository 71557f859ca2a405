package hook

import "fmt"

// ResultSlot is a write-once cell that receives the resolved address
// of a None-type Signature. Declare one next to the Signature that
// populates it and read it after the batch has been applied.
type ResultSlot struct {
	addr      uintptr
	populated bool
}

// Address returns the discovered address. The boolean is false until
// the owning Signature has been installed.
func (o *ResultSlot) Address() (uintptr, bool) {
	return o.addr, o.populated
}

func (o *ResultSlot) set(addr uintptr) error {
	if o.populated {
		return fmt.Errorf("result slot is already populated (existing: 0x%x, new: 0x%x)",
			o.addr, addr)
	}

	o.addr = addr
	o.populated = true

	return nil
}

// ReturnSlot is a write-once cell that receives the resume address of
// an injectable Signature: the first byte after the installed hook.
// Replacement code jumps to this address to continue the original
// instruction stream.
//
// The slot is populated before the hook becomes reachable, so
// replacement code may read it at any point after its hook fires.
type ReturnSlot struct {
	addr      uintptr
	populated bool
}

// Address returns the resume address. The boolean is false until the
// owning Signature has been installed.
func (o *ReturnSlot) Address() (uintptr, bool) {
	return o.addr, o.populated
}

func (o *ReturnSlot) set(addr uintptr) error {
	if o.populated {
		return fmt.Errorf("return slot is already populated (existing: 0x%x, new: 0x%x)",
			o.addr, addr)
	}

	o.addr = addr
	o.populated = true

	return nil
}
