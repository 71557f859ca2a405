// sigscan scans an executable image file for a byte-pattern signature
// and reports where it matches, optionally disassembling the matched
// code. It exists so descriptor authors can verify that a signature is
// unique in a new build before committing it to a patch table.
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/patchkit/memory"
	"gitlab.com/stephen-fox/patchkit/sigscan"
	"golang.org/x/arch/x86/x86asm"
)

func main() {
	log.SetHandler(cli.Default)

	err := newRootCommand().Execute()
	if err != nil {
		log.Fatalf("%s", err)
	}
}

func newRootCommand() *cobra.Command {
	var (
		base        uint64
		limit       int
		numInsts    int
		contextSize int
	)

	cmd := &cobra.Command{
		Use:   "sigscan <image-file> <signature>",
		Short: "Scan an executable image for a byte-pattern signature",
		Long: `Scan an executable image for a byte-pattern signature.

The signature uses space-separated hex bytes with "?" marking
wildcards, e.g.:

  sigscan game.bin '48 8b 0d ? ? ? ? 48 81 c1'

A signature intended for patching must match exactly once.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scan(args[0], args[1], uintptr(base), limit, numInsts, contextSize)
		},
	}

	cmd.Flags().Uint64Var(&base, "base", 0x140000000,
		"image load base address")
	cmd.Flags().IntVar(&limit, "limit", 10,
		"maximum number of matches to report (0 for no limit)")
	cmd.Flags().IntVarP(&numInsts, "disassemble", "d", 0,
		"number of instructions to disassemble at each match")
	cmd.Flags().IntVar(&contextSize, "context", 64,
		"number of bytes available to the disassembler per match")

	return cmd
}

func scan(imagePath string, signature string, base uintptr, limit int, numInsts int, contextSize int) error {
	pattern, err := sigscan.ParsePattern(signature)
	if err != nil {
		return fmt.Errorf("failed to parse signature - %w", err)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image file - %w", err)
	}

	img := memory.NewImage(base, data)

	matches := sigscan.NewScanner(img).FindAll(pattern, limit)

	switch len(matches) {
	case 0:
		return fmt.Errorf("signature has no matches in %q", imagePath)
	case 1:
		log.Infof("signature matches once at 0x%x (offset 0x%x)",
			matches[0], matches[0]-base)
	default:
		log.Warnf("signature matches %d times - it cannot anchor a patch",
			len(matches))
	}

	for _, match := range matches {
		fmt.Printf("0x%x (offset 0x%x)\n", match, match-base)

		if numInsts > 0 {
			err = disassemble(img, match, numInsts, contextSize)
			if err != nil {
				log.Warnf("failed to disassemble at 0x%x - %s", match, err)
			}
		}
	}

	return nil
}

func disassemble(img *memory.Image, addr uintptr, numInsts int, contextSize int) error {
	code := make([]byte, contextSize)

	err := img.ReadAt(addr, code)
	if err != nil {
		// The match may sit near the end of the image; take
		// whatever is left.
		end := img.Base() + uintptr(img.Size())
		code = make([]byte, end-addr)

		err = img.ReadAt(addr, code)
		if err != nil {
			return err
		}
	}

	for i := 0; i < numInsts && len(code) > 0; i++ {
		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			return fmt.Errorf("failed to decode instruction at 0x%x - %w", addr, err)
		}

		fmt.Printf("  %#x  %-24x %s\n",
			addr, code[0:inst.Len], x86asm.IntelSyntax(inst, uint64(addr), nil))

		code = code[inst.Len:]
		addr += uintptr(inst.Len)
	}

	return nil
}
