package vcfcount

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/biomisc"
	"github.com/carbocation/bix"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
)

const BufferSize = 4096 * 8

// ProgressEvery sets how often, in records, progress is logged.
var ProgressEvery = 100000

// Region is a 1-based, inclusive genomic interval. It satisfies the
// position interface that tabix queries take.
type Region struct {
	Chromosome string
	From       int
	To         int
}

func (r Region) Chrom() string { return r.Chromosome }

// Start is 0-based.
func (r Region) Start() uint32 { return uint32(r.From - 1) }

func (r Region) End() uint32 { return uint32(r.To) }

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chromosome, r.From, r.To)
}

// ParseRegion reads "chrom:start-end".
func ParseRegion(s string) (Region, error) {
	colon := strings.LastIndex(s, ":")
	if colon <= 0 {
		return Region{}, fmt.Errorf("region %q is not of the form chrom:start-end", s)
	}

	bounds := strings.SplitN(s[colon+1:], "-", 2)
	if len(bounds) != 2 {
		return Region{}, fmt.Errorf("region %q is not of the form chrom:start-end", s)
	}

	from, err := strconv.Atoi(strings.ReplaceAll(bounds[0], ",", ""))
	if err != nil {
		return Region{}, pfx.Err(fmt.Errorf("region %q: %w", s, err))
	}
	to, err := strconv.Atoi(strings.ReplaceAll(bounds[1], ",", ""))
	if err != nil {
		return Region{}, pfx.Err(fmt.Errorf("region %q: %w", s, err))
	}
	if from < 1 || to < from {
		return Region{}, fmt.Errorf("region %q has invalid bounds", s)
	}

	return Region{Chromosome: s[:colon], From: from, To: to}, nil
}

// NewReader reads a VCF header from r and returns a reader that parses
// genotypes lazily. Header problems that vcfgo can tolerate are logged.
func NewReader(r io.Reader) (*vcfgo.Reader, error) {
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(r, BufferSize), true)
	if err != nil {
		if rdr == nil {
			return nil, pfx.Err(err)
		}
		log.Println("Invalid VCF header features, attempting to continue:", err)
		rdr.Clear()
	}

	return rdr, nil
}

// Open opens a plain or compressed VCF from a local or gs:// path.
func Open(ctx context.Context, path string, client *storage.Client) (*vcfgo.Reader, io.Closer, error) {
	f, err := biomisc.Open(ctx, path, client)
	if err != nil {
		return nil, nil, err
	}

	rdr, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return rdr, f, nil
}

// CountAll streams every record from rdr into a new Counter.
func CountAll(rdr *vcfgo.Reader, mode Mode, filter Filter) (*Counter, error) {
	c := NewCounter(rdr.Header.SampleNames, mode, filter)

	for i := 1; ; i++ {
		v := rdr.Read()
		if v == nil {
			break
		}

		if err := rdr.Error(); err != nil {
			c.Records++
			c.skip(v, SkipMalformed)
			rdr.Clear()
			continue
		}

		if _, err := c.Add(v); err != nil {
			return nil, err
		}

		if ProgressEvery > 0 && i%ProgressEvery == 0 {
			log.Printf("Processed %d records. Last %s:%d\n", i, v.Chromosome, v.Pos)
		}
	}

	log.Printf("Processed %d records, counted %d\n", c.Records, c.Counted)

	return c, nil
}

// CountRegions queries a bgzipped, tabix-indexed VCF for each region and
// tallies the records found.
func CountRegions(path string, client *storage.Client, regions []Region, mode Mode, filter Filter) (*Counter, error) {
	tbx, err := bix.NewGCP(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer tbx.Close()

	c := NewCounter(tbx.VReader.Header.SampleNames, mode, filter)

	for _, region := range regions {
		log.Printf("Querying %s\n", region)

		vals, err := tbx.Query(region)
		if err != nil {
			return nil, pfx.Err(err)
		}

		for {
			v, err := vals.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				vals.Close()
				return nil, pfx.Err(err)
			}

			// Unwrap to get to the vcfgo.Variant
			wrapped, ok := v.(interfaces.VarWrap)
			if !ok {
				vals.Close()
				return nil, fmt.Errorf("%s:%d: not a valid VarWrap", v.Chrom(), v.End())
			}
			snp, ok := wrapped.IVariant.(*vcfgo.Variant)
			if !ok {
				vals.Close()
				return nil, fmt.Errorf("%s:%d: not a valid vcfgo variant", v.Chrom(), v.End())
			}
			if snp.Header == nil {
				snp.Header = tbx.VReader.Header
			}

			if _, err := c.Add(snp); err != nil {
				vals.Close()
				return nil, err
			}
		}
		vals.Close()
	}

	log.Printf("Processed %d records, counted %d\n", c.Records, c.Counted)

	return c, nil
}
