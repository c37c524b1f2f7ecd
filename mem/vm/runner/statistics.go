package runner

import (
	"github.com/sarchlab/tlbsim/mem/vm"
)

// Statistics summarizes the translations of one access pattern.
//
// Misses counts every access that did not hit in the TLB, page faults
// included, so that HitRatePercent is hits over all accesses. Faults breaks
// out how many of those misses found no mapping at all.
type Statistics struct {
	TotalAccesses  uint64  `yaml:"total_accesses"`
	Hits           uint64  `yaml:"hits"`
	Misses         uint64  `yaml:"misses"`
	Faults         uint64  `yaml:"faults"`
	Evictions      uint64  `yaml:"evictions"`
	HitRatePercent float64 `yaml:"hit_rate_percent"`
}

// ResolvedMisses returns the number of misses that the page table resolved.
func (s Statistics) ResolvedMisses() uint64 {
	return s.Misses - s.Faults
}

func (s *Statistics) record(outcome vm.Outcome) {
	s.TotalAccesses++

	switch outcome {
	case vm.Hit:
		s.Hits++
	case vm.MissResolved:
		s.Misses++
	case vm.Fault:
		s.Misses++
		s.Faults++
	}
}

func (s *Statistics) updateHitRate() {
	if s.TotalAccesses == 0 {
		s.HitRatePercent = 0
		return
	}

	s.HitRatePercent = float64(s.Hits) * 100 / float64(s.TotalAccesses)
}
