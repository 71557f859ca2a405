package hook

import "fmt"

// Stub collaborators shared by the tests in this package.

type stubDB struct {
	addrs map[uint64]uintptr
	calls int
}

func (o *stubDB) FindAddressByID(id uint64) (uintptr, bool) {
	o.calls++
	addr, hasIt := o.addrs[id]
	return addr, hasIt
}

type stubScanner struct {
	addr  uintptr
	err   error
	calls int
}

func (o *stubScanner) FindUnique(signature string) (uintptr, error) {
	o.calls++
	return o.addr, o.err
}

type stubMemory struct {
	values map[uintptr]uintptr
}

func (o *stubMemory) ReadPointer(addr uintptr, size int) (uintptr, error) {
	value, hasIt := o.values[addr]
	if !hasIt {
		return 0, fmt.Errorf("no value at 0x%x", addr)
	}
	return value, nil
}

type writeOp struct {
	op     string
	addr   uintptr
	target uintptr
	fill   byte
	count  int
}

// recordingWriter records every write in order. onWrite, when set, is
// invoked before each operation is recorded.
type recordingWriter struct {
	ops     []writeOp
	failOp  string
	onWrite func(op string)
}

func (o *recordingWriter) record(op string, addr uintptr, target uintptr, fill byte, count int) error {
	if o.onWrite != nil {
		o.onWrite(op)
	}

	if o.failOp == op {
		return fmt.Errorf("stubbed %s failure", op)
	}

	o.ops = append(o.ops, writeOp{
		op:     op,
		addr:   addr,
		target: target,
		fill:   fill,
		count:  count,
	})

	return nil
}

func (o *recordingWriter) WriteShortJump(addr uintptr, target uintptr) error {
	return o.record("ShortJump", addr, target, 0, 0)
}

func (o *recordingWriter) WriteLongJump(addr uintptr, target uintptr) error {
	return o.record("LongJump", addr, target, 0, 0)
}

func (o *recordingWriter) WriteDirectJump(addr uintptr, target uintptr) error {
	return o.record("DirectJump", addr, target, 0, 0)
}

func (o *recordingWriter) WriteShortCall(addr uintptr, target uintptr) error {
	return o.record("ShortCall", addr, target, 0, 0)
}

func (o *recordingWriter) WriteLongCall(addr uintptr, target uintptr) error {
	return o.record("LongCall", addr, target, 0, 0)
}

func (o *recordingWriter) WriteDirectCall(addr uintptr, target uintptr) error {
	return o.record("DirectCall", addr, target, 0, 0)
}

func (o *recordingWriter) Fill(addr uintptr, b byte, numBytes int) error {
	return o.record("Fill", addr, 0, b, numBytes)
}
