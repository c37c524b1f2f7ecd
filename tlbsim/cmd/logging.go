package cmd

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/addresstranslator"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// newTranslationLogger returns a hook that logs the outcome of every
// translation.
func newTranslationLogger(logger *log.Logger) hooking.Hook {
	return hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != addresstranslator.HookPosTranslated {
			return
		}

		r := ctx.Item.(addresstranslator.Result)

		switch r.Outcome {
		case vm.Hit:
			logger.Printf("%s: TLB hit for virtual page %s, 0x%x -> 0x%x",
				ctx.Domain.Name(), r.Key, r.VirtualAddress, r.PhysicalAddress)
		case vm.MissResolved:
			logger.Printf("%s: TLB miss, page table maps virtual page %s "+
				"to frame %d, 0x%x -> 0x%x",
				ctx.Domain.Name(), r.Key, r.Frame,
				r.VirtualAddress, r.PhysicalAddress)
		case vm.Fault:
			logger.Printf("%s: page fault, virtual page %s is not in the "+
				"page table", ctx.Domain.Name(), r.Key)
		}
	})
}
