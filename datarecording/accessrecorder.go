package datarecording

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/addresstranslator"
	"github.com/sarchlab/tlbsim/mem/vm/runner"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// Names of the tables that an AccessRecorder writes.
const (
	AccessTable   = "access"
	EvictionTable = "eviction"
	SummaryTable  = "run_summary"
)

// AccessEntry is one translated address. Addresses and frame numbers are
// stored as hexadecimal text because SQLite integers cannot hold every 64-bit
// value.
type AccessEntry struct {
	Session         string
	Run             string
	Seq             uint64
	VirtualAddress  string
	Level1          uint64
	Level2          uint64
	Offset          uint64
	Outcome         string
	Frame           string
	PhysicalAddress string
}

// EvictionEntry is one page dropped from a TLB. AccessSeq is the Seq of the
// access that caused the eviction.
type EvictionEntry struct {
	Session   string
	Run       string
	AccessSeq uint64
	Level1    uint64
	Level2    uint64
	Frame     string
}

// SummaryEntry holds the statistics of one run.
type SummaryEntry struct {
	Session        string
	Run            string
	TotalAccesses  uint64
	Hits           uint64
	Misses         uint64
	Faults         uint64
	Evictions      uint64
	HitRatePercent float64
}

// AccessRecorder is a hook that records translations and TLB evictions. It
// should be attached to both the translators and the TLBs of a runner. All
// entries written by one AccessRecorder share a session ID.
type AccessRecorder struct {
	lock     sync.Mutex
	recorder DataRecorder
	session  string
	seq      map[string]uint64
}

// NewAccessRecorder creates the trace tables in the recorder and returns a
// hook that fills them.
func NewAccessRecorder(recorder DataRecorder) *AccessRecorder {
	r := &AccessRecorder{
		recorder: recorder,
		session:  xid.New().String(),
		seq:      make(map[string]uint64),
	}

	recorder.CreateTable(AccessTable, AccessEntry{})
	recorder.CreateTable(EvictionTable, EvictionEntry{})
	recorder.CreateTable(SummaryTable, SummaryEntry{})

	return r
}

// Session returns the ID shared by all the entries of this recorder.
func (r *AccessRecorder) Session() string {
	return r.session
}

// Func records the hook context if it is a translation or an eviction.
func (r *AccessRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case addresstranslator.HookPosTranslated:
		r.recordAccess(runName(ctx.Domain), ctx.Item.(addresstranslator.Result))
	case tlb.HookPosEvict:
		r.recordEviction(runName(ctx.Domain),
			ctx.Item.(vm.AddressKey), ctx.Detail.(vm.FrameNumber))
	}
}

func (r *AccessRecorder) recordAccess(
	run string,
	res addresstranslator.Result,
) {
	r.lock.Lock()
	r.seq[run]++
	seq := r.seq[run]
	r.lock.Unlock()

	entry := AccessEntry{
		Session:        r.session,
		Run:            run,
		Seq:            seq,
		VirtualAddress: fmt.Sprintf("0x%x", res.VirtualAddress),
		Level1:         res.Key.Level1,
		Level2:         res.Key.Level2,
		Offset:         res.Offset,
		Outcome:        res.Outcome.String(),
	}

	if res.HasPhysicalAddress() {
		entry.Frame = fmt.Sprintf("0x%x", uint64(res.Frame))
		entry.PhysicalAddress = fmt.Sprintf("0x%x", res.PhysicalAddress)
	}

	r.recorder.InsertData(AccessTable, entry)
}

// recordEviction runs while the access is still being translated, before its
// translation is recorded.
func (r *AccessRecorder) recordEviction(
	run string,
	key vm.AddressKey,
	frame vm.FrameNumber,
) {
	r.lock.Lock()
	accessSeq := r.seq[run] + 1
	r.lock.Unlock()

	r.recorder.InsertData(EvictionTable, EvictionEntry{
		Session:   r.session,
		Run:       run,
		AccessSeq: accessSeq,
		Level1:    key.Level1,
		Level2:    key.Level2,
		Frame:     fmt.Sprintf("0x%x", uint64(frame)),
	})
}

// RecordSummary stores the statistics of a finished run. The run should be
// named as runner.Runner.RunName names it so that the summary matches the
// run's accesses.
func (r *AccessRecorder) RecordSummary(run string, s runner.Statistics) {
	r.recorder.InsertData(SummaryTable, SummaryEntry{
		Session:        r.session,
		Run:            run,
		TotalAccesses:  s.TotalAccesses,
		Hits:           s.Hits,
		Misses:         s.Misses,
		Faults:         s.Faults,
		Evictions:      s.Evictions,
		HitRatePercent: s.HitRatePercent,
	})
}

// runName drops the component suffix from a name such as
// "Runner.Sequential.TLB".
func runName(domain hooking.Hookable) string {
	if domain == nil {
		return ""
	}

	name := domain.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}

	return name
}
