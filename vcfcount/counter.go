// Package vcfcount tallies per-sample heterozygous, non-reference, and
// singleton genotypes from VCF files.
package vcfcount

import (
	"fmt"
	"log"

	"github.com/carbocation/vcfgo"
)

// SampleCount is one sample's tally.
type SampleCount struct {
	SampleID string `csv:"sample"`
	Count    int    `csv:"count"`
}

// Counter accumulates counts across records. It is not safe for concurrent
// use.
type Counter struct {
	Mode   Mode
	Filter Filter

	// Verbose logs every skipped record.
	Verbose bool

	samples []string
	counts  []int

	// Records is the number of records seen; Counted those that passed the
	// filter.
	Records int
	Counted int
	Skipped map[SkipReason]int
}

func NewCounter(samples []string, mode Mode, filter Filter) *Counter {
	return &Counter{
		Mode:    mode,
		Filter:  filter,
		samples: append([]string(nil), samples...),
		counts:  make([]int, len(samples)),
		Skipped: make(map[SkipReason]int),
	}
}

// Add tallies one record. Records that are filtered out are logged and
// counted in Skipped rather than returned as errors; only a sample count
// mismatch, which means the reader and counter disagree, is an error.
func (c *Counter) Add(v *vcfgo.Variant) (SkipReason, error) {
	c.Records++

	reason := c.Filter.Classify(v.Chromosome, v.Pos, v.Ref(), v.Alt())
	if reason == SkipNone {
		if err := v.Header.ParseSamples(v); err != nil {
			reason = SkipMalformed
		}
	}
	if reason != SkipNone {
		c.skip(v, reason)
		return reason, nil
	}

	if len(v.Samples) != len(c.samples) {
		return SkipNone, fmt.Errorf("%s:%d has %d samples but the header lists %d", v.Chromosome, v.Pos, len(v.Samples), len(c.samples))
	}

	c.Counted++

	switch c.Mode {
	case Het:
		for i, s := range v.Samples {
			if s != nil && IsHet(s.GT) {
				c.counts[i]++
			}
		}

	case NonRef:
		for i, s := range v.Samples {
			if s != nil && IsNonRef(s.GT) {
				c.counts[i]++
			}
		}

	case Singleton:
		carrier := -1
		for i, s := range v.Samples {
			if s == nil || !IsHet(s.GT) {
				continue
			}
			if carrier >= 0 {
				carrier = -1
				break
			}
			carrier = i
		}
		if carrier >= 0 {
			c.counts[carrier]++
		}

	default:
		return SkipNone, fmt.Errorf("unknown mode %q", c.Mode)
	}

	return SkipNone, nil
}

func (c *Counter) skip(v *vcfgo.Variant, reason SkipReason) {
	c.Skipped[reason]++
	if c.Verbose || reason != SkipChromosome {
		log.Printf("Skipped %s:%d (%s)\n", v.Chromosome, v.Pos, reason)
	}
}

// Counts returns the tallies in VCF sample order.
func (c *Counter) Counts() []SampleCount {
	out := make([]SampleCount, len(c.samples))
	for i, s := range c.samples {
		out[i] = SampleCount{SampleID: s, Count: c.counts[i]}
	}

	return out
}

// CountMap returns the tallies keyed by sample ID.
func (c *Counter) CountMap() map[string]int {
	out := make(map[string]int, len(c.samples))
	for i, s := range c.samples {
		out[s] = c.counts[i]
	}

	return out
}
