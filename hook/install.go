package hook

import "fmt"

// Install writes the Signature's patch at its resolved address.
//
// The write discipline matters: once the hook bytes land, the host's
// other threads may reenter the patched region at any time, so the
// return slot is populated before the branch is written, and the
// unused tail of the patch window is filled with no-ops so no fragment
// of the original instruction stream survives inside it.
//
// Installing a Signature twice, or installing one that has not been
// resolved, is a defect in the calling code and fails without touching
// memory.
func (o *Signature) Install(w CodeWriter) error {
	if !o.resolved {
		return fmt.Errorf("signature %s has not been resolved", o.name)
	}

	if o.installed {
		return fmt.Errorf("signature %s has already been installed", o.name)
	}

	info := typeCatalog[o.hookType]

	if info.footprint > o.patchSize {
		// An under-sized reservation would corrupt the instructions
		// following the patch window.
		return fmt.Errorf("signature %s reserves %d bytes but the %s footprint is %d",
			o.name, o.patchSize, o.hookType, info.footprint)
	}

	if o.hookType == None {
		err := o.resultSlot.set(o.addr)
		if err != nil {
			return fmt.Errorf("signature %s - %w", o.name, err)
		}

		o.installed = true

		return nil
	}

	if w == nil {
		return fmt.Errorf("signature %s requires a code writer", o.name)
	}

	resumeAddr := o.addr + uintptr(info.footprint)

	if o.returnSlot != nil {
		err := o.returnSlot.set(resumeAddr)
		if err != nil {
			return fmt.Errorf("signature %s - %w", o.name, err)
		}
	}

	if info.install != nil {
		err := info.install(w, o.addr, o.target)
		if err != nil {
			return fmt.Errorf("failed to write %s hook for signature %s at 0x%x - %w",
				o.hookType, o.name, o.addr, err)
		}
	}

	if o.patchSize > info.footprint {
		err := w.Fill(resumeAddr, nopOpcode, o.patchSize-info.footprint)
		if err != nil {
			return fmt.Errorf("failed to fill %d trailing bytes for signature %s at 0x%x - %w",
				o.patchSize-info.footprint, o.name, resumeAddr, err)
		}
	}

	o.installed = true

	return nil
}

// InstallOrExit calls Install, invoking DefaultExitFn if an error
// occurs.
func (o *Signature) InstallOrExit(w CodeWriter) {
	err := o.Install(w)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to install signature - %w", err))
	}
}
