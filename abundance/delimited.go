package abundance

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadDelimited parses a classic OTU table: one row per feature, the first
// column holding feature IDs and a header row naming the samples. Leading '#'
// lines are comments, except a "#OTU ID" line which is the header. A final
// column named taxonomy (or "Consensus Lineage") holds ';'-separated ranks.
func ReadDelimited(r io.Reader, delimiter rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		header     []string
		featureIDs []string
		values     [][]float64
		taxonomy   [][]string
		taxColumn  = -1
	)

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		if header == nil {
			first := strings.TrimSpace(rec[0])
			if strings.HasPrefix(first, "#") && !isHeaderLabel(first) {
				continue
			}
			header = rec
			if last := strings.ToLower(strings.TrimSpace(header[len(header)-1])); len(header) > 1 && (last == "taxonomy" || last == "consensus lineage") {
				taxColumn = len(header) - 1
			}
			continue
		}

		nSamples := len(header) - 1
		if taxColumn >= 0 {
			nSamples--
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d has %d columns, but the header has %d", line, len(rec), len(header))
		}

		row := make([]float64, nSamples)
		for j := 0; j < nSamples; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, sample %q: %w", line, header[j+1], err)
			}
			row[j] = v
		}

		featureIDs = append(featureIDs, strings.TrimSpace(rec[0]))
		values = append(values, row)
		if taxColumn >= 0 {
			taxonomy = append(taxonomy, SplitTaxonomy(rec[taxColumn]))
		}
	}

	if header == nil {
		return nil, fmt.Errorf("no header row found")
	}

	sampleIDs := make([]string, 0, len(header)-1)
	for j := 1; j < len(header); j++ {
		if j == taxColumn {
			continue
		}
		sampleIDs = append(sampleIDs, strings.TrimSpace(header[j]))
	}

	if taxColumn >= 0 && taxonomy == nil {
		taxonomy = [][]string{}
	}

	return NewWithTaxonomy(featureIDs, sampleIDs, values, taxonomy)
}

func isHeaderLabel(s string) bool {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "#")))
	return s == "otu id" || s == "otuid" || s == "feature id"
}

// WriteDelimited writes t as a tab-separated OTU table with a "#OTU ID"
// header and, when present, a trailing taxonomy column.
func WriteDelimited(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("#OTU ID")
	for _, sid := range t.sampleIDs {
		bw.WriteByte('\t')
		bw.WriteString(sid)
	}
	if t.taxonomy != nil {
		bw.WriteString("\ttaxonomy")
	}
	bw.WriteByte('\n')

	for fi, fid := range t.featureIDs {
		bw.WriteString(fid)
		for _, v := range t.values[fi] {
			bw.WriteByte('\t')
			bw.WriteString(formatValue(v))
		}
		if t.taxonomy != nil {
			bw.WriteByte('\t')
			bw.WriteString(strings.Join(t.taxonomy[fi], "; "))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// SplitTaxonomy splits a "k__Bacteria; p__Firmicutes" style lineage.
func SplitTaxonomy(lineage string) []string {
	return trimRanks(strings.Split(lineage, ";"))
}

func trimRanks(ranks []string) []string {
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, strings.TrimSpace(r))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
