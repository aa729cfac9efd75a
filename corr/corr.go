// Package corr computes pairwise Spearman correlations between features of
// an abundance table within each sample category and keeps those that
// survive multiple-testing correction.
package corr

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/carbocation/biomisc/abundance"
	"github.com/carbocation/biomisc/mapfile"
	"golang.org/x/sync/errgroup"
)

// Test is one category/feature-pair correlation. P is the corrected p-value
// once returned by Run.
type Test struct {
	Category    string  `csv:"Category"`
	Variable    string  `csv:"Variable"`
	ByVariable  string  `csv:"by Variable"`
	Correlation float64 `csv:"Correlation"`
	P           float64 `csv:"p value"`
}

type Options struct {
	Method Method
	Alpha  float64

	// Workers bounds concurrent chunks. 0 means GOMAXPROCS.
	Workers int

	// ChunkSize is the number of feature pairs per unit of work. 0 picks a
	// size from the number of pairs and workers.
	ChunkSize int
}

func DefaultOptions() Options {
	return Options{Method: BenjaminiHochberg, Alpha: 0.05}
}

// Summary reports how many tests were run and how many survived.
type Summary struct {
	Tests   int
	Skipped int
	Kept    int
}

// ArcsineSqrt converts a table to relative abundance and applies asin(sqrt(x)).
func ArcsineSqrt(t *abundance.Table) (*abundance.Table, error) {
	return t.Normalize().Transform(func(v float64) float64 {
		return math.Asin(math.Sqrt(v))
	})
}

type featurePair struct{ a, b int }

// Run correlates every pair of features within every category. The table
// should already be transformed. Tests are ordered by feature pair, then by
// category, and the result is the same regardless of Workers. Categories with
// fewer than 3 samples produce no tests and are counted as skipped.
func Run(ctx context.Context, t *abundance.Table, categories []mapfile.Category, opts Options) ([]Test, Summary, error) {
	if _, err := ParseMethod(string(opts.Method)); err != nil {
		return nil, Summary{}, err
	}

	featureIDs := t.FeatureIDs()
	names := make([]string, len(featureIDs))
	for i, id := range featureIDs {
		names[i] = t.DisplayName(id)
	}

	// columns[c][f] holds feature f's values over category c's samples.
	columns := make([][][]float64, len(categories))
	for c, cat := range categories {
		columns[c] = make([][]float64, len(featureIDs))
		for f := range featureIDs {
			columns[c][f] = make([]float64, 0, len(cat.SampleIDs))
		}
		for _, sid := range cat.SampleIDs {
			v, ok := t.SampleVector(sid)
			if !ok {
				return nil, Summary{}, fmt.Errorf("category %q: sample %q is not in the abundance table", cat.Name, sid)
			}
			for f := range featureIDs {
				columns[c][f] = append(columns[c][f], v[f])
			}
		}
	}

	var pairs []featurePair
	for a := 0; a < len(featureIDs); a++ {
		for b := a + 1; b < len(featureIDs); b++ {
			pairs = append(pairs, featurePair{a, b})
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(pairs)/(4*workers) + 1
	}

	nChunks := (len(pairs) + chunkSize - 1) / chunkSize
	chunks := make([][]Test, nChunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < nChunks; i++ {
		i := i
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(pairs) {
			hi = len(pairs)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = correlateChunk(pairs[lo:hi], categories, columns, names)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	var tests []Test
	for _, c := range chunks {
		tests = append(tests, c...)
	}

	summary := Summary{Tests: len(tests)}
	for _, cat := range categories {
		if len(cat.SampleIDs) < 3 {
			summary.Skipped += len(pairs)
		}
	}

	raw := make([]float64, len(tests))
	for i, tt := range tests {
		raw[i] = tt.P
	}
	adjusted, err := Adjust(raw, opts.Method)
	if err != nil {
		return nil, Summary{}, err
	}

	kept := make([]Test, 0)
	for i, tt := range tests {
		if adjusted[i] < opts.Alpha {
			tt.P = adjusted[i]
			kept = append(kept, tt)
		}
	}
	summary.Kept = len(kept)

	return kept, summary, nil
}

func correlateChunk(pairs []featurePair, categories []mapfile.Category, columns [][][]float64, names []string) []Test {
	out := make([]Test, 0, len(pairs)*len(categories))
	for _, p := range pairs {
		for c, cat := range categories {
			if len(cat.SampleIDs) < 3 {
				continue
			}
			rho, pval := Spearman(columns[c][p.a], columns[c][p.b])
			out = append(out, Test{
				Category:    cat.Name,
				Variable:    names[p.a],
				ByVariable:  names[p.b],
				Correlation: rho,
				P:           pval,
			})
		}
	}

	return out
}
