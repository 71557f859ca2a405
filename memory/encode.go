package memory

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Branch and call opcodes for the supported hook encodings.
const (
	opRel32Jump = 0xe9
	opRel32Call = 0xe8
	opIndirect  = 0xff
	modRipJump  = 0x25
	modRipCall  = 0x15
)

// NewCodePatcherOrExit calls NewCodePatcher, invoking DefaultExitFn if
// an error occurs.
func NewCodePatcherOrExit(config CodePatcherConfig) *CodePatcher {
	p, err := NewCodePatcher(config)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to create code patcher - %w", err))
	}
	return p
}

// NewCodePatcher creates a CodePatcher according to the specified
// configuration.
func NewCodePatcher(config CodePatcherConfig) (*CodePatcher, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	return &CodePatcher{
		img:   config.Image,
		arena: config.Arena,
	}, nil
}

// CodePatcherConfig configures a CodePatcher.
type CodePatcherConfig struct {
	// Image is the code region to patch.
	Image *Image

	// Arena supplies absolute-target slots for the 6 byte encodings
	// and stubs for out-of-range 5 byte encodings. It may be nil,
	// in which case only in-range rel32 encodings succeed.
	Arena *Arena
}

func (o CodePatcherConfig) validate() error {
	if o.Image == nil {
		return fmt.Errorf("image cannot be nil")
	}

	return nil
}

// CodePatcher writes hook encodings into an executable image.
//
// The "short" 5 byte variants prefer a rel32 branch and fall back to a
// rel32 branch into an arena stub when the target is out of reach. The
// "long" 6 byte variants branch through an 8 byte arena slot holding
// the absolute target. The "direct" variants always encode rel32 at
// the patch site and fail if the target is out of reach.
type CodePatcher struct {
	img   *Image
	arena *Arena
}

// WriteShortJump writes a 5 byte jump at the specified address.
func (o *CodePatcher) WriteShortJump(addr uintptr, target uintptr) error {
	return o.writeRel32OrStub(addr, target, opRel32Jump)
}

// WriteShortCall writes a 5 byte call at the specified address.
func (o *CodePatcher) WriteShortCall(addr uintptr, target uintptr) error {
	return o.writeRel32OrStub(addr, target, opRel32Call)
}

// WriteLongJump writes a 6 byte rip-relative indirect jump at the
// specified address, branching through an arena slot.
func (o *CodePatcher) WriteLongJump(addr uintptr, target uintptr) error {
	return o.writeIndirect(addr, target, modRipJump)
}

// WriteLongCall writes a 6 byte rip-relative indirect call at the
// specified address, branching through an arena slot.
func (o *CodePatcher) WriteLongCall(addr uintptr, target uintptr) error {
	return o.writeIndirect(addr, target, modRipCall)
}

// WriteDirectJump writes a 5 byte jump at the specified address,
// failing if the target cannot be reached with a rel32 displacement.
func (o *CodePatcher) WriteDirectJump(addr uintptr, target uintptr) error {
	return o.writeRel32(addr, target, opRel32Jump)
}

// WriteDirectCall writes a 5 byte call at the specified address,
// failing if the target cannot be reached with a rel32 displacement.
func (o *CodePatcher) WriteDirectCall(addr uintptr, target uintptr) error {
	return o.writeRel32(addr, target, opRel32Call)
}

// Fill overwrites numBytes bytes at the specified address with the
// byte value b.
func (o *CodePatcher) Fill(addr uintptr, b byte, numBytes int) error {
	return o.img.Fill(addr, b, numBytes)
}

func (o *CodePatcher) writeRel32(addr uintptr, target uintptr, opcode byte) error {
	displacement, err := rel32(addr+5, target)
	if err != nil {
		return fmt.Errorf("cannot encode rel32 branch from 0x%x to 0x%x - %w",
			addr, target, err)
	}

	return o.img.WriteAt(addr, encodeRel32(opcode, displacement))
}

func (o *CodePatcher) writeRel32OrStub(addr uintptr, target uintptr, opcode byte) error {
	_, err := rel32(addr+5, target)
	if err == nil {
		return o.writeRel32(addr, target, opcode)
	}

	if o.arena == nil {
		return fmt.Errorf("cannot encode rel32 branch from 0x%x to 0x%x and no arena is available - %w",
			addr, target, err)
	}

	stubAddr, err := o.writeStub(target)
	if err != nil {
		return fmt.Errorf("failed to write branch stub for 0x%x - %w", target, err)
	}

	return o.writeRel32(addr, stubAddr, opcode)
}

// writeStub allocates and writes a 14 byte absolute-jump stub:
// "ff 25 00 00 00 00" followed by the 8 byte target.
func (o *CodePatcher) writeStub(target uintptr) (uintptr, error) {
	addr, err := o.arena.Take(14)
	if err != nil {
		return 0, err
	}

	stub := []byte{opIndirect, modRipJump, 0x00, 0x00, 0x00, 0x00}
	stub = append(stub, encodeUint64(uint64(target))...)

	err = o.img.WriteAt(addr, stub)
	if err != nil {
		return 0, err
	}

	return addr, nil
}

func (o *CodePatcher) writeIndirect(addr uintptr, target uintptr, modrm byte) error {
	if o.arena == nil {
		return fmt.Errorf("6 byte encodings require an arena")
	}

	slotAddr, err := o.arena.TakeSlot(target)
	if err != nil {
		return fmt.Errorf("failed to allocate target slot for 0x%x - %w",
			target, err)
	}

	displacement, err := rel32(addr+6, slotAddr)
	if err != nil {
		return fmt.Errorf("cannot reach target slot at 0x%x from 0x%x - %w",
			slotAddr, addr, err)
	}

	instruction := make([]byte, 6)
	instruction[0] = opIndirect
	instruction[1] = modrm
	binary.LittleEndian.PutUint32(instruction[2:], uint32(displacement))

	return o.img.WriteAt(addr, instruction)
}

// rel32 computes the displacement from the end of an instruction to
// a target address, failing if it does not fit in a signed 32 bit
// integer.
func rel32(next uintptr, target uintptr) (int32, error) {
	displacement := int64(target) - int64(next)
	if displacement < math.MinInt32 || displacement > math.MaxInt32 {
		return 0, fmt.Errorf("displacement 0x%x exceeds rel32 range", displacement)
	}

	return int32(displacement), nil
}

func encodeRel32(opcode byte, displacement int32) []byte {
	instruction := make([]byte, 5)
	instruction[0] = opcode
	binary.LittleEndian.PutUint32(instruction[1:], uint32(displacement))

	return instruction
}

func encodeUint64(value uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)

	return buf
}
