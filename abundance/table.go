// Package abundance holds sample-by-feature abundance tables (OTU tables) and
// reads and writes them in the BIOM 1.0 JSON and classic tab-separated
// layouts.
package abundance

import (
	"fmt"
	"math"
)

// Table is an immutable sample-by-feature abundance matrix. Feature and sample
// order is the order in which they were supplied.
type Table struct {
	featureIDs []string
	sampleIDs  []string

	featureIndex map[string]int
	sampleIndex  map[string]int

	// values[feature][sample]
	values [][]float64

	// taxonomy[feature], nil when the table carries no taxonomy
	taxonomy [][]string
}

// New builds a table from a values matrix laid out as values[feature][sample].
// The inputs are copied.
func New(featureIDs, sampleIDs []string, values [][]float64) (*Table, error) {
	return NewWithTaxonomy(featureIDs, sampleIDs, values, nil)
}

// NewWithTaxonomy is New with per-feature taxonomy ranks. taxonomy may be nil;
// otherwise it must have one (possibly empty) entry per feature.
func NewWithTaxonomy(featureIDs, sampleIDs []string, values [][]float64, taxonomy [][]string) (*Table, error) {
	if len(values) != len(featureIDs) {
		return nil, fmt.Errorf("abundance: %d features but %d rows of values", len(featureIDs), len(values))
	}
	if taxonomy != nil && len(taxonomy) != len(featureIDs) {
		return nil, fmt.Errorf("abundance: %d features but %d taxonomy entries", len(featureIDs), len(taxonomy))
	}

	t := &Table{
		featureIDs:   append([]string(nil), featureIDs...),
		sampleIDs:    append([]string(nil), sampleIDs...),
		featureIndex: make(map[string]int, len(featureIDs)),
		sampleIndex:  make(map[string]int, len(sampleIDs)),
		values:       make([][]float64, len(values)),
	}

	for i, id := range t.sampleIDs {
		if _, exists := t.sampleIndex[id]; exists {
			return nil, fmt.Errorf("abundance: duplicate sample ID %q", id)
		}
		t.sampleIndex[id] = i
	}

	for i, id := range t.featureIDs {
		if _, exists := t.featureIndex[id]; exists {
			return nil, fmt.Errorf("abundance: duplicate feature ID %q", id)
		}
		t.featureIndex[id] = i

		if len(values[i]) != len(sampleIDs) {
			return nil, fmt.Errorf("abundance: feature %q has %d values but there are %d samples", id, len(values[i]), len(sampleIDs))
		}
		for j, v := range values[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("abundance: feature %q sample %q has invalid abundance %v", id, sampleIDs[j], v)
			}
		}
		t.values[i] = append([]float64(nil), values[i]...)
	}

	if taxonomy != nil {
		t.taxonomy = make([][]string, len(taxonomy))
		for i, ranks := range taxonomy {
			t.taxonomy[i] = append([]string(nil), ranks...)
		}
	}

	return t, nil
}

func (t *Table) NumFeatures() int { return len(t.featureIDs) }
func (t *Table) NumSamples() int  { return len(t.sampleIDs) }

// FeatureIDs returns a copy of the feature identifiers in table order.
func (t *Table) FeatureIDs() []string { return append([]string(nil), t.featureIDs...) }

// SampleIDs returns a copy of the sample identifiers in table order.
func (t *Table) SampleIDs() []string { return append([]string(nil), t.sampleIDs...) }

func (t *Table) HasSample(id string) bool {
	_, ok := t.sampleIndex[id]
	return ok
}

// Value returns the abundance of feature in sample.
func (t *Table) Value(feature, sample string) (float64, bool) {
	fi, ok := t.featureIndex[feature]
	if !ok {
		return 0, false
	}
	si, ok := t.sampleIndex[sample]
	if !ok {
		return 0, false
	}

	return t.values[fi][si], true
}

// SampleVector returns a copy of one sample's abundances in feature order.
func (t *Table) SampleVector(sample string) ([]float64, bool) {
	si, ok := t.sampleIndex[sample]
	if !ok {
		return nil, false
	}

	out := make([]float64, len(t.featureIDs))
	for fi := range t.featureIDs {
		out[fi] = t.values[fi][si]
	}

	return out, true
}

// HasTaxonomy reports whether the table carries per-feature taxonomy.
func (t *Table) HasTaxonomy() bool { return t.taxonomy != nil }

// Taxonomy returns the taxonomy ranks of a feature, or nil.
func (t *Table) Taxonomy(feature string) []string {
	fi, ok := t.featureIndex[feature]
	if !ok || t.taxonomy == nil {
		return nil
	}

	return append([]string(nil), t.taxonomy[fi]...)
}

// SampleSums returns the total abundance of each sample, in sample order.
func (t *Table) SampleSums() []float64 {
	out := make([]float64, len(t.sampleIDs))
	for _, row := range t.values {
		for si, v := range row {
			out[si] += v
		}
	}

	return out
}

// FeatureSums returns the total abundance of each feature, in feature order.
func (t *Table) FeatureSums() []float64 {
	out := make([]float64, len(t.featureIDs))
	for fi, row := range t.values {
		for _, v := range row {
			out[fi] += v
		}
	}

	return out
}

// Normalize returns a relative-abundance copy of the table in which every
// sample sums to 1. Samples with no counts stay all zero.
func (t *Table) Normalize() *Table {
	sums := t.SampleSums()

	values := make([][]float64, len(t.values))
	for fi, row := range t.values {
		values[fi] = make([]float64, len(row))
		for si, v := range row {
			if sums[si] > 0 {
				values[fi][si] = v / sums[si]
			}
		}
	}

	return t.derive(t.featureIDs, t.sampleIDs, values, t.taxonomy)
}

// Transform returns a copy of the table with fn applied to every value.
func (t *Table) Transform(fn func(float64) float64) (*Table, error) {
	values := make([][]float64, len(t.values))
	for fi, row := range t.values {
		values[fi] = make([]float64, len(row))
		for si, v := range row {
			values[fi][si] = fn(v)
		}
	}

	return NewWithTaxonomy(t.featureIDs, t.sampleIDs, values, t.taxonomy)
}

// FilterSamples returns a table restricted to the given samples, in the
// order given. Unknown sample IDs are an error.
func (t *Table) FilterSamples(keep []string) (*Table, error) {
	idx := make([]int, 0, len(keep))
	for _, id := range keep {
		si, ok := t.sampleIndex[id]
		if !ok {
			return nil, fmt.Errorf("abundance: sample %q is not in the table", id)
		}
		idx = append(idx, si)
	}

	values := make([][]float64, len(t.values))
	for fi, row := range t.values {
		values[fi] = make([]float64, len(idx))
		for j, si := range idx {
			values[fi][j] = row[si]
		}
	}

	return NewWithTaxonomy(t.featureIDs, keep, values, t.taxonomy)
}

// DropEmptyFeatures removes features whose total abundance is zero and
// returns the filtered table along with the IDs that were removed.
func (t *Table) DropEmptyFeatures() (*Table, []string) {
	sums := t.FeatureSums()

	var (
		keptIDs  []string
		dropped  []string
		values   [][]float64
		taxonomy [][]string
	)
	for fi, id := range t.featureIDs {
		if sums[fi] == 0 {
			dropped = append(dropped, id)
			continue
		}
		keptIDs = append(keptIDs, id)
		values = append(values, t.values[fi])
		if t.taxonomy != nil {
			taxonomy = append(taxonomy, t.taxonomy[fi])
		}
	}
	if t.taxonomy != nil && taxonomy == nil {
		taxonomy = [][]string{}
	}

	return t.derive(keptIDs, t.sampleIDs, values, taxonomy), dropped
}

// derive builds a table from inputs already known to be valid.
func (t *Table) derive(featureIDs, sampleIDs []string, values [][]float64, taxonomy [][]string) *Table {
	out, err := NewWithTaxonomy(featureIDs, sampleIDs, values, taxonomy)
	if err != nil {
		panic(err)
	}

	return out
}
