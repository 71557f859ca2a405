package hook_test

import (
	"fmt"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"gitlab.com/stephen-fox/patchkit/hook"
	"gitlab.com/stephen-fox/patchkit/memory"
	"gitlab.com/stephen-fox/patchkit/sigscan"
	"gitlab.com/stephen-fox/patchkit/versiondb"
)

// Patch a synthetic executable image: discover a global through the
// version database, then hook a function found by pattern scan.
func Example() {
	const base = 0x140000000

	image := memory.NewImage(base, make([]byte, 0x300))

	// The "function" to hook, recognizable by its prologue.
	image.WriteAt(base+0x100, []byte{0x40, 0x57, 0x48, 0x83, 0xec, 0x30})

	db := versiondb.New("1.6.1170.0")
	db.Add(403521, 0x1f8)

	arena := memory.NewArenaOrExit(image, base+0x200, 0x100)

	var playerObject hook.ResultSlot
	var hookReturn hook.ReturnSlot

	table := []*hook.Signature{
		hook.DiscoverySignatureOrExit("g_thePlayer", 403521, &playerObject),
		hook.NewSignatureOrExit(hook.SignatureConfig{
			Name:      "ImproveAttributeWhenLevelUp",
			Hook:      hook.LongJump,
			Target:    0x150000000,
			Locate:    sigLocator("40 57 48 83 ec 30"),
			PatchSize: 6,
			Return:    &hookReturn,
		}),
	}

	applier := hook.NewApplierOrExit(hook.ApplierConfig{
		Resolver: &hook.Resolver{
			DB:      db.Bind(base),
			Scanner: sigscan.NewScanner(image),
			Memory:  image,
		},
		Code: memory.NewCodePatcherOrExit(memory.CodePatcherConfig{
			Image: image,
			Arena: arena,
		}),
		Base: base,
		Log: &log.Logger{
			Handler: discard.Default,
		},
	})

	applier.ApplyAllOrExit(table)

	player, _ := playerObject.Address()
	resume, _ := hookReturn.Address()

	fmt.Printf("player object at offset 0x%x\n", player-base)
	fmt.Printf("hooked function resumes at offset 0x%x\n", resume-base)

	// Output:
	// player object at offset 0x1f8
	// hooked function resumes at offset 0x106
}

func sigLocator(signature string) hook.Locator {
	return hook.PatternLocator(hook.PatternLocatorConfig{
		Signature: signature,
	})
}
