package doc

import "errors"

var (
	ErrUnknownSample   = errors.New("sample is not in the abundance table")
	ErrDuplicateSample = errors.New("sample was selected more than once")

	// ErrIncompletePairs means the calculator did not produce exactly one
	// result per sample pair.
	ErrIncompletePairs = errors.New("dissimilarity-overlap values were not calculated for all sample pairs")

	// ErrIncompleteCoverage means some sample pair never appeared in any
	// bootstrap replicate.
	ErrIncompleteCoverage = errors.New("all sample pairs not included in estimating CI; please increase the number of bootstrap iterations")
)
