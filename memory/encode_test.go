package memory

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestPatcher(t *testing.T, codeSize int, arenaSize int) (*CodePatcher, *Image) {
	t.Helper()

	img := NewImage(0x1000, make([]byte, codeSize+arenaSize))

	var arena *Arena
	if arenaSize > 0 {
		var err error
		arena, err = NewArena(img, 0x1000+uintptr(codeSize), arenaSize)
		if err != nil {
			t.Fatalf("failed to create arena - %s", err)
		}
	}

	patcher, err := NewCodePatcher(CodePatcherConfig{
		Image: img,
		Arena: arena,
	})
	if err != nil {
		t.Fatalf("failed to create code patcher - %s", err)
	}

	return patcher, img
}

func TestCodePatcher_WriteShortJump(t *testing.T) {
	patcher, img := newTestPatcher(t, 0x100, 0)

	err := patcher.WriteShortJump(0x1010, 0x1080)
	if err != nil {
		t.Fatalf("failed to write jump - %s", err)
	}

	// rel32 = 0x1080 - (0x1010 + 5) = 0x6b.
	exp := []byte{0xe9, 0x6b, 0x00, 0x00, 0x00}
	got := make([]byte, 5)
	img.ReadAt(0x1010, got)

	if !bytes.Equal(got, exp) {
		t.Fatalf("expected 0x%x - got 0x%x", exp, got)
	}
}

func TestCodePatcher_WriteShortCall_BackwardTarget(t *testing.T) {
	patcher, img := newTestPatcher(t, 0x100, 0)

	err := patcher.WriteShortCall(0x1080, 0x1000)
	if err != nil {
		t.Fatalf("failed to write call - %s", err)
	}

	got := make([]byte, 5)
	img.ReadAt(0x1080, got)

	if got[0] != 0xe8 {
		t.Fatalf("expected call opcode 0xe8 - got 0x%x", got[0])
	}

	displacement := int32(binary.LittleEndian.Uint32(got[1:]))
	if displacement != -0x85 {
		t.Fatalf("expected displacement -0x85 - got %#x", displacement)
	}
}

func TestCodePatcher_WriteShortJump_OutOfRangeUsesStub(t *testing.T) {
	patcher, img := newTestPatcher(t, 0x100, 0x40)

	target := uintptr(0x7fff00001000)

	err := patcher.WriteShortJump(0x1010, target)
	if err != nil {
		t.Fatalf("failed to write jump - %s", err)
	}

	instruction := make([]byte, 5)
	img.ReadAt(0x1010, instruction)

	if instruction[0] != 0xe9 {
		t.Fatalf("expected jump opcode 0xe9 - got 0x%x", instruction[0])
	}

	displacement := int32(binary.LittleEndian.Uint32(instruction[1:]))
	stubAddr := uintptr(int64(0x1010+5) + int64(displacement))

	stub := make([]byte, 14)
	err = img.ReadAt(stubAddr, stub)
	if err != nil {
		t.Fatalf("failed to read stub - %s", err)
	}

	if !bytes.Equal(stub[0:6], []byte{0xff, 0x25, 0x00, 0x00, 0x00, 0x00}) {
		t.Fatalf("unexpected stub instruction: 0x%x", stub[0:6])
	}

	if binary.LittleEndian.Uint64(stub[6:]) != uint64(target) {
		t.Fatalf("expected stub target 0x%x - got 0x%x",
			target, binary.LittleEndian.Uint64(stub[6:]))
	}
}

func TestCodePatcher_WriteDirectJump_OutOfRangeFails(t *testing.T) {
	patcher, _ := newTestPatcher(t, 0x100, 0x40)

	err := patcher.WriteDirectJump(0x1010, 0x7fff00001000)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestCodePatcher_WriteLongJump(t *testing.T) {
	patcher, img := newTestPatcher(t, 0x100, 0x40)

	target := uintptr(0x7fff00001000)

	err := patcher.WriteLongJump(0x1010, target)
	if err != nil {
		t.Fatalf("failed to write jump - %s", err)
	}

	instruction := make([]byte, 6)
	img.ReadAt(0x1010, instruction)

	if !bytes.Equal(instruction[0:2], []byte{0xff, 0x25}) {
		t.Fatalf("expected 'ff 25' - got 0x%x", instruction[0:2])
	}

	displacement := int32(binary.LittleEndian.Uint32(instruction[2:]))
	slotAddr := uintptr(int64(0x1010+6) + int64(displacement))

	slot, err := img.ReadUint(slotAddr, 8)
	if err != nil {
		t.Fatalf("failed to read slot - %s", err)
	}

	if slot != uint64(target) {
		t.Fatalf("expected slot value 0x%x - got 0x%x", target, slot)
	}
}

func TestCodePatcher_WriteLongCall(t *testing.T) {
	patcher, img := newTestPatcher(t, 0x100, 0x40)

	err := patcher.WriteLongCall(0x1020, 0x9000)
	if err != nil {
		t.Fatalf("failed to write call - %s", err)
	}

	instruction := make([]byte, 2)
	img.ReadAt(0x1020, instruction)

	if !bytes.Equal(instruction, []byte{0xff, 0x15}) {
		t.Fatalf("expected 'ff 15' - got 0x%x", instruction)
	}
}

func TestCodePatcher_WriteLongJump_NoArenaFails(t *testing.T) {
	patcher, _ := newTestPatcher(t, 0x100, 0)

	err := patcher.WriteLongJump(0x1010, 0x2000)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestArena_Exhaustion(t *testing.T) {
	img := NewImage(0x1000, make([]byte, 16))

	arena, err := NewArena(img, 0x1000, 16)
	if err != nil {
		t.Fatalf("failed to create arena - %s", err)
	}

	_, err = arena.Take(8)
	if err != nil {
		t.Fatalf("failed to take 8 bytes - %s", err)
	}

	_, err = arena.Take(9)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}

	if arena.Remaining() != 8 {
		t.Fatalf("expected 8 bytes remaining - got %d", arena.Remaining())
	}
}

func TestNewArena_OutsideImage(t *testing.T) {
	img := NewImage(0x1000, make([]byte, 16))

	_, err := NewArena(img, 0x1008, 16)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
}
