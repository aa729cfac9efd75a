package doc

import (
	"fmt"

	"github.com/carbocation/biomisc/abundance"
)

type AnalysisOptions struct {
	// Frac is the LOWESS fraction for the central curve and the replicates.
	Frac float64

	// Bootstrap enables the confidence band.
	Bootstrap bool

	BootstrapOptions BootstrapOptions
}

// Analysis is a complete DOC for one group of samples.
type Analysis struct {
	Samples  []string
	Results  []Result
	Points   []CurvePoint
	RSquared float64
}

// Analyze calculates every pairwise result for samples, fits the central
// curve and, if requested, the bootstrap band.
func Analyze(t *abundance.Table, samples []string, opts AnalysisOptions) (*Analysis, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("at least 2 samples are needed, got %d", len(samples))
	}

	results, err := Calculate(t, samples)
	if err != nil {
		return nil, err
	}

	var intervals map[Pair]Interval
	if opts.Bootstrap {
		bopts := opts.BootstrapOptions
		bopts.Frac = opts.Frac
		intervals, err = Bootstrap(results, samples, bopts)
		if err != nil {
			return nil, err
		}
	}

	points, err := Fit(results, opts.Frac, intervals)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Samples:  samples,
		Results:  results,
		Points:   points,
		RSquared: RSquared(points),
	}, nil
}
