package vcfcount

import (
	"fmt"
	"strings"
)

// Mode selects which genotypes are counted.
type Mode string

const (
	// Het counts one reference plus one alternate allele.
	Het Mode = "het"

	// NonRef counts any called genotype carrying an alternate allele.
	NonRef Mode = "nonref"

	// Singleton credits the only heterozygous sample at a site.
	Singleton Mode = "singleton"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case Het, NonRef, Singleton:
		return m, nil
	}

	return "", fmt.Errorf("unknown mode %q (expected het, nonref, or singleton)", s)
}

// SkipReason says why a record was not counted. SkipNone means it was.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipChromosome
	SkipNotBiallelicSNV
	SkipPAR
	SkipMalformed
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "counted"
	case SkipChromosome:
		return "other chromosome"
	case SkipNotBiallelicSNV:
		return "not a biallelic SNV"
	case SkipPAR:
		return "pseudoautosomal region"
	case SkipMalformed:
		return "malformed record"
	}

	return fmt.Sprintf("SkipReason(%d)", int(r))
}

// GRCh37 X-chromosome pseudoautosomal regions, 1-based inclusive.
var pseudoautosomal = [][2]uint64{
	{60001, 2699520},
	{154931044, 155260560},
}

// InPAR reports whether a 1-based chrX position lies in a pseudoautosomal
// region.
func InPAR(pos uint64) bool {
	for _, r := range pseudoautosomal {
		if pos >= r[0] && pos <= r[1] {
			return true
		}
	}

	return false
}

// NormalizeChromosome strips a leading "chr" so that "chr21" and "21" match.
func NormalizeChromosome(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}

	return chrom
}

func isBase(s string) bool {
	switch s {
	case "A", "C", "G", "T":
		return true
	}

	return false
}

// Filter decides which records are eligible for counting.
type Filter struct {
	// Chromosome restricts counting to one contig, with or without "chr".
	// Empty accepts all.
	Chromosome string

	// Haploid skips X-chromosome pseudoautosomal records, for counting
	// hemizygous samples.
	Haploid bool
}

// Classify returns SkipNone for a record that should be counted.
func (f Filter) Classify(chrom string, pos uint64, ref string, alts []string) SkipReason {
	chrom = NormalizeChromosome(chrom)
	if f.Chromosome != "" && !strings.EqualFold(chrom, NormalizeChromosome(f.Chromosome)) {
		return SkipChromosome
	}

	if f.Haploid && strings.EqualFold(chrom, "X") && InPAR(pos) {
		return SkipPAR
	}

	if len(alts) != 1 || !isBase(strings.ToUpper(ref)) || !isBase(strings.ToUpper(alts[0])) {
		return SkipNotBiallelicSNV
	}

	return SkipNone
}

// IsHet reports a diploid call with exactly one reference and one alternate
// allele. Phasing is ignored.
func IsHet(gt []int) bool {
	if len(gt) != 2 {
		return false
	}

	return (gt[0] == 0 && gt[1] > 0) || (gt[0] > 0 && gt[1] == 0)
}

// IsNonRef reports a fully called genotype with at least one alternate
// allele.
func IsNonRef(gt []int) bool {
	if len(gt) == 0 {
		return false
	}

	alt := false
	for _, a := range gt {
		if a < 0 {
			return false
		}
		if a > 0 {
			alt = true
		}
	}

	return alt
}
