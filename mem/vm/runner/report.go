package runner

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// A Report collects the results of several runs that share a configuration.
type Report struct {
	Layout       string            `yaml:"layout"`
	TLBCapacity  int               `yaml:"tlb_capacity"`
	MappedPages  int               `yaml:"mapped_pages"`
	TotalPages   int               `yaml:"total_pages"`
	FaultPolicy  string            `yaml:"fault_policy"`
	AddressCheck string            `yaml:"address_check"`
	Runs         []NamedStatistics `yaml:"runs"`
}

// WriteYAML encodes the report as YAML.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return enc.Close()
}

// WriteSummary prints the statistics of a run in a human-readable form.
func WriteSummary(w io.Writer, s NamedStatistics) error {
	_, err := fmt.Fprintf(w,
		"%s\n"+
			"Total Accesses: %d\n"+
			"TLB Hits: %d\n"+
			"TLB Misses: %d (page faults: %d)\n"+
			"TLB Evictions: %d\n"+
			"TLB Hit Rate: %.2f%%\n",
		s.Name,
		s.TotalAccesses,
		s.Hits,
		s.Misses, s.Faults,
		s.Evictions,
		s.HitRatePercent,
	)

	return err
}
