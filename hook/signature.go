package hook

import "fmt"

// NewSignatureOrExit calls NewSignature, invoking DefaultExitFn if an
// error occurs. It exists so Signature tables can be declared as
// package-level variables.
func NewSignatureOrExit(config SignatureConfig) *Signature {
	sig, err := NewSignature(config)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to create signature - %w", err))
	}
	return sig
}

// NewSignature creates a Signature according to the specified
// configuration. Configurations that violate the descriptor invariants
// (a target without an injectable hook type, an under-sized patch
// window, a slot that the hook type cannot populate) are authoring
// defects and fail here, before any resolution takes place.
func NewSignature(config SignatureConfig) (*Signature, error) {
	err := config.validate()
	if err != nil {
		if config.Name != "" {
			return nil, fmt.Errorf("signature %q - %w", config.Name, err)
		}
		return nil, err
	}

	return &Signature{
		name:       config.Name,
		hookType:   config.Hook,
		target:     config.Target,
		locator:    config.Locate,
		patchSize:  config.PatchSize,
		hookOffset: config.HookOffset,
		returnSlot: config.Return,
		resultSlot: config.Result,
	}, nil
}

// SignatureConfig configures a Signature.
type SignatureConfig struct {
	// Name is a diagnostic label for the patch.
	Name string

	// Hook is the hook encoding to install.
	Hook Type

	// Target is the address of the replacement code. It must be set
	// exactly when Hook is an injectable type.
	Target uintptr

	// Locate is the lookup strategy that produces the anchor
	// address.
	Locate Locator

	// PatchSize is the total number of bytes reserved at the patch
	// site. It must be at least the footprint of Hook; bytes beyond
	// the footprint become no-op filler.
	PatchSize int

	// HookOffset is the displacement from the anchor to the actual
	// patch point.
	HookOffset int64

	// Return optionally receives the resume address. Only injectable
	// hook types may carry one.
	Return *ReturnSlot

	// Result receives the resolved address. Required for None
	// signatures, forbidden otherwise.
	Result *ResultSlot
}

func (o SignatureConfig) validate() error {
	if o.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if o.Locate == nil {
		return fmt.Errorf("locator cannot be nil")
	}

	if !o.Hook.valid() {
		return fmt.Errorf("invalid hook type: %d", int(o.Hook))
	}

	if o.Hook.Injectable() != (o.Target != 0) {
		if o.Hook.Injectable() {
			return fmt.Errorf("hook type %s requires a target", o.Hook)
		}
		return fmt.Errorf("hook type %s cannot have a target", o.Hook)
	}

	if o.PatchSize < Footprint(o.Hook) {
		return fmt.Errorf("patch size %d is smaller than the %s footprint of %d",
			o.PatchSize, o.Hook, Footprint(o.Hook))
	}

	if o.Hook == Nop && o.PatchSize == 0 {
		return fmt.Errorf("a nop patch must reserve at least one byte")
	}

	if o.Return != nil && !o.Hook.Injectable() {
		return fmt.Errorf("hook type %s cannot populate a return slot", o.Hook)
	}

	if (o.Hook == None) != (o.Result != nil) {
		if o.Hook == None {
			return fmt.Errorf("a discovery signature requires a result slot")
		}
		return fmt.Errorf("hook type %s cannot populate a result slot", o.Hook)
	}

	if o.Hook == None && o.PatchSize != 0 {
		return fmt.Errorf("a discovery signature cannot reserve patch bytes")
	}

	return nil
}

// DiscoverySignatureOrExit creates a None-type Signature that resolves
// the specified ID and records the address in result, invoking
// DefaultExitFn if the configuration is invalid.
func DiscoverySignatureOrExit(name string, id uint64, result *ResultSlot) *Signature {
	return NewSignatureOrExit(SignatureConfig{
		Name:   name,
		Hook:   None,
		Locate: IDLocator(id),
		Result: result,
	})
}

// Signature declares one patch: what to find, how to find it, and how
// to rewrite it. Signatures are immutable after construction except
// for the one-time memoized resolution result and the one-time
// installed flag.
type Signature struct {
	name       string
	hookType   Type
	target     uintptr
	locator    Locator
	patchSize  int
	hookOffset int64
	returnSlot *ReturnSlot
	resultSlot *ResultSlot

	resolved  bool
	addr      uintptr
	installed bool
}

// Name returns the Signature's diagnostic label.
func (o *Signature) Name() string {
	return o.name
}

// HookType returns the hook encoding the Signature installs.
func (o *Signature) HookType() Type {
	return o.hookType
}

// PatchSize returns the number of bytes reserved at the patch site.
func (o *Signature) PatchSize() int {
	return o.patchSize
}

// Resolved returns true once the Signature's address has been
// memoized.
func (o *Signature) Resolved() bool {
	return o.resolved
}

// Installed returns true once the Signature's patch has been written.
func (o *Signature) Installed() bool {
	return o.installed
}

// Address returns the memoized patch address. The boolean is false
// until the Signature has been resolved.
func (o *Signature) Address() (uintptr, bool) {
	return o.addr, o.resolved
}

// ResumeAddress returns the address immediately following the
// installed hook's footprint. The boolean is false until the Signature
// has been resolved.
func (o *Signature) ResumeAddress() (uintptr, bool) {
	if !o.resolved {
		return 0, false
	}

	return o.addr + uintptr(Footprint(o.hookType)), true
}
