package hook

import "fmt"

// Locator produces the anchor address for a Signature: the raw lookup
// result before the Signature's own hook offset is applied. Exactly two
// strategies exist; the rest of the package is oblivious to which one
// a Signature carries.
type Locator interface {
	fmt.Stringer

	locate(r *Resolver) (uintptr, error)
}

// IDLocator locates an address through the version-keyed address
// database using a stable numeric ID.
func IDLocator(id uint64) Locator {
	return idLocator{
		id: id,
	}
}

type idLocator struct {
	id uint64
}

func (o idLocator) locate(r *Resolver) (uintptr, error) {
	if r.DB == nil {
		return 0, fmt.Errorf("no address database is configured")
	}

	addr, hasIt := r.DB.FindAddressByID(o.id)
	if !hasIt {
		return 0, fmt.Errorf("id %d is not in the address database - the running executable build is unsupported",
			o.id)
	}

	return addr, nil
}

func (o idLocator) String() string {
	return fmt.Sprintf("id %d", o.id)
}

// PatternLocatorConfig configures a pattern-scan Locator.
type PatternLocatorConfig struct {
	// Signature is the byte pattern to scan for
	// (e.g., "48 8b 0d ? ? ? ?"). It must match exactly once.
	Signature string

	// IndirectOffset, when non-zero, makes the locator read a value
	// at match+IndirectOffset and use it as the anchor instead of
	// the match address itself. Used when the matched instruction
	// contains a further address to chase.
	IndirectOffset int64

	// InstrSize is the size in bytes of the value read during
	// indirection. Zero means pointer-sized.
	InstrSize int
}

// PatternLocator locates an address by scanning the executable's code
// region for a byte-pattern signature.
func PatternLocator(config PatternLocatorConfig) Locator {
	return patternLocator{
		config: config,
	}
}

type patternLocator struct {
	config PatternLocatorConfig
}

func (o patternLocator) locate(r *Resolver) (uintptr, error) {
	if r.Scanner == nil {
		return 0, fmt.Errorf("no pattern scanner is configured")
	}

	match, err := r.Scanner.FindUnique(o.config.Signature)
	if err != nil {
		return 0, fmt.Errorf("the running executable build is unsupported - %w", err)
	}

	if o.config.IndirectOffset == 0 {
		return match, nil
	}

	if r.Memory == nil {
		return 0, fmt.Errorf("indirection requires a memory reader")
	}

	anchor, err := r.Memory.ReadPointer(
		uintptr(int64(match)+o.config.IndirectOffset),
		o.config.InstrSize)
	if err != nil {
		return 0, fmt.Errorf("failed to dereference match at 0x%x + 0x%x - %w",
			match, o.config.IndirectOffset, err)
	}

	return anchor, nil
}

func (o patternLocator) String() string {
	return fmt.Sprintf("pattern %q", o.config.Signature)
}
