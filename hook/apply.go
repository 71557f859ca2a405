package hook

import (
	"fmt"

	"github.com/apex/log"
)

// NewApplierOrExit calls NewApplier, invoking DefaultExitFn if an
// error occurs.
func NewApplierOrExit(config ApplierConfig) *Applier {
	applier, err := NewApplier(config)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to create applier - %w", err))
	}
	return applier
}

// NewApplier creates an Applier according to the specified
// configuration.
func NewApplier(config ApplierConfig) (*Applier, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	logger := config.Log
	if logger == nil {
		logger = log.Log
	}

	return &Applier{
		resolver: config.Resolver,
		code:     config.Code,
		base:     config.Base,
		log:      logger,
	}, nil
}

// ApplierConfig configures an Applier.
type ApplierConfig struct {
	// Resolver supplies the lookup collaborators.
	Resolver *Resolver

	// Code writes hook bytes and filler. It may be nil when the
	// Signature table contains only None signatures.
	Code CodeWriter

	// Base is the executable's load base address, used only to
	// report image-relative offsets in diagnostics.
	Base uintptr

	// Log receives one diagnostic line per Signature. Defaults to
	// the apex/log standard logger.
	Log log.Interface
}

func (o ApplierConfig) validate() error {
	if o.Resolver == nil {
		return fmt.Errorf("resolver cannot be nil")
	}

	return nil
}

// Applier resolves and installs an ordered table of Signatures.
type Applier struct {
	resolver *Resolver
	code     CodeWriter
	base     uintptr
	log      log.Interface
}

// ApplyAllOrExit calls ApplyAll, invoking DefaultExitFn if an error
// occurs. This is the entry point a plugin calls once during attach,
// before the host process resumes normal execution.
func (o *Applier) ApplyAllOrExit(sigs []*Signature) {
	err := o.ApplyAll(sigs)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to apply patches - %w", err))
	}
}

// ApplyAll resolves and installs each Signature in table order.
//
// Order is significant only to the caller: a discovery Signature whose
// result slot feeds later logic must simply appear before that logic
// runs. The first resolution or installation failure stops the batch
// immediately; Signatures already installed are not rolled back, since
// a partial undo cannot restore a verified state either. The caller is
// expected to treat any returned error as fatal to the process.
func (o *Applier) ApplyAll(sigs []*Signature) error {
	o.log.Infof("applying %d patches...", len(sigs))

	for _, sig := range sigs {
		addr, err := sig.Resolve(o.resolver)
		if err != nil {
			return fmt.Errorf("failed to resolve signature %s - %w",
				sig.Name(), err)
		}

		o.log.Infof("signature %s (%s + 0x%x) is at offset 0x%x",
			sig.Name(), sig.locator, sig.hookOffset, addr-o.base)

		err = sig.Install(o.code)
		if err != nil {
			return fmt.Errorf("failed to install signature %s - %w",
				sig.Name(), err)
		}
	}

	o.log.Infof("finished applying %d patches", len(sigs))

	return nil
}
