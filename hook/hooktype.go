package hook

import "fmt"

// Type enumerates the hook encodings that can be installed at a patch
// site.
//
// None installs nothing and records the resolved address in a result
// slot (pure address discovery). Nop installs no branch; the entire
// patch window becomes no-op filler. The remaining types inject a
// branch or call to replacement code.
type Type int

const (
	// None performs address discovery only; no memory is modified.
	None Type = iota

	// Nop overwrites the entire patch window with no-ops.
	Nop

	// ShortJump is a 5 byte jump, stub-assisted when out of range.
	ShortJump

	// LongJump is a 6 byte indirect jump through an absolute-target
	// slot.
	LongJump

	// DirectJump is a 5 byte rel32 jump with no stub fallback.
	DirectJump

	// ShortCall is a 5 byte call, stub-assisted when out of range.
	ShortCall

	// LongCall is a 6 byte indirect call through an absolute-target
	// slot.
	LongCall

	// DirectCall is a 5 byte rel32 call with no stub fallback.
	DirectCall
)

// typeInfo describes one hook encoding. The catalog below is the single
// dispatch table shared by footprint computation and installation.
type typeInfo struct {
	name       string
	footprint  int
	injectable bool
	install    func(w CodeWriter, addr uintptr, target uintptr) error
}

var typeCatalog = map[Type]typeInfo{
	None: {name: "None"},
	Nop:  {name: "Nop"},
	ShortJump: {
		name:       "ShortJump",
		footprint:  5,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteShortJump(addr, target)
		},
	},
	LongJump: {
		name:       "LongJump",
		footprint:  6,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteLongJump(addr, target)
		},
	},
	DirectJump: {
		name:       "DirectJump",
		footprint:  5,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteDirectJump(addr, target)
		},
	},
	ShortCall: {
		name:       "ShortCall",
		footprint:  5,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteShortCall(addr, target)
		},
	},
	LongCall: {
		name:       "LongCall",
		footprint:  6,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteLongCall(addr, target)
		},
	},
	DirectCall: {
		name:       "DirectCall",
		footprint:  5,
		injectable: true,
		install: func(w CodeWriter, addr uintptr, target uintptr) error {
			return w.WriteDirectCall(addr, target)
		},
	},
}

// Footprint returns the number of bytes the specified hook type
// occupies once written. It panics when given a tag outside the
// catalog; that is a defect in the descriptor table, not a runtime
// condition.
func Footprint(t Type) int {
	info, hasIt := typeCatalog[t]
	if !hasIt {
		panic(fmt.Sprintf("cannot get the footprint of invalid hook type %d", int(t)))
	}

	return info.footprint
}

// Injectable returns true when the Type writes a branch or call into
// the patch site.
func (o Type) Injectable() bool {
	return typeCatalog[o].injectable
}

func (o Type) String() string {
	info, hasIt := typeCatalog[o]
	if !hasIt {
		return fmt.Sprintf("Type(%d)", int(o))
	}

	return info.name
}

func (o Type) valid() bool {
	_, hasIt := typeCatalog[o]
	return hasIt
}
