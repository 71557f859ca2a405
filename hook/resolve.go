package hook

import "fmt"

// Resolver bundles the collaborators that address resolution consults.
// Only the fields a Signature table actually uses need to be set: DB
// for ID locators, Scanner (plus Memory when indirection is involved)
// for pattern locators.
type Resolver struct {
	// DB translates stable IDs to addresses for the running build.
	DB AddressDB

	// Scanner finds unique byte-pattern matches.
	Scanner Scanner

	// Memory reads executable memory during indirection.
	Memory MemoryReader
}

// Resolve produces the Signature's concrete patch address: the
// locator's anchor plus the configured hook offset.
//
// Resolution is memoized. The first successful call caches the address
// on the Signature; subsequent calls return the cached address without
// consulting any collaborator. Resolution never mutates executable
// memory.
func (o *Signature) Resolve(r *Resolver) (uintptr, error) {
	if o.resolved {
		return o.addr, nil
	}

	if r == nil {
		return 0, fmt.Errorf("resolver cannot be nil")
	}

	anchor, err := o.locator.locate(r)
	if err != nil {
		return 0, fmt.Errorf("failed to locate %s (%s) - %w",
			o.name, o.locator, err)
	}

	o.addr = uintptr(int64(anchor) + o.hookOffset)
	o.resolved = true

	return o.addr, nil
}

// ResolveOrExit calls Resolve, invoking DefaultExitFn if an error
// occurs.
func (o *Signature) ResolveOrExit(r *Resolver) uintptr {
	addr, err := o.Resolve(r)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to resolve signature - %w", err))
	}
	return addr
}
