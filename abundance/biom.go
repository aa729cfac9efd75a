package abundance

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carbocation/pfx"
)

const biomFormat = "Biological Observation Matrix 1.0.0"

type biomEntry struct {
	ID       string          `json:"id"`
	Metadata json.RawMessage `json:"metadata"`
}

type biomDocument struct {
	ID                string          `json:"id"`
	Format            string          `json:"format"`
	FormatURL         string          `json:"format_url,omitempty"`
	Type              string          `json:"type"`
	GeneratedBy       string          `json:"generated_by"`
	Date              string          `json:"date"`
	MatrixType        string          `json:"matrix_type"`
	MatrixElementType string          `json:"matrix_element_type"`
	Shape             [2]int          `json:"shape"`
	Data              [][]json.Number `json:"data"`
	Rows              []biomEntry     `json:"rows"`
	Columns           []biomEntry     `json:"columns"`
}

// ReadBIOM parses a BIOM 1.0 JSON document. Rows are features (observations)
// and columns are samples. Both sparse and dense matrices are accepted.
func ReadBIOM(r io.Reader) (*Table, error) {
	var doc biomDocument
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, pfx.Err(fmt.Errorf("decoding BIOM JSON: %w", err))
	}

	nRows, nCols := len(doc.Rows), len(doc.Columns)
	if doc.Shape != [2]int{0, 0} && (doc.Shape[0] != nRows || doc.Shape[1] != nCols) {
		return nil, fmt.Errorf("BIOM shape %v disagrees with %d rows and %d columns", doc.Shape, nRows, nCols)
	}

	featureIDs := make([]string, nRows)
	taxonomy := make([][]string, nRows)
	hasTaxonomy := false
	for i, row := range doc.Rows {
		featureIDs[i] = row.ID
		ranks, err := parseTaxonomyMetadata(row.Metadata)
		if err != nil {
			return nil, fmt.Errorf("BIOM row %q: %w", row.ID, err)
		}
		if ranks != nil {
			hasTaxonomy = true
		}
		taxonomy[i] = ranks
	}
	if !hasTaxonomy {
		taxonomy = nil
	}

	sampleIDs := make([]string, nCols)
	for j, col := range doc.Columns {
		sampleIDs[j] = col.ID
	}

	values := make([][]float64, nRows)
	for i := range values {
		values[i] = make([]float64, nCols)
	}

	switch strings.ToLower(doc.MatrixType) {
	case "sparse":
		for k, triple := range doc.Data {
			if len(triple) != 3 {
				return nil, fmt.Errorf("BIOM sparse entry %d has %d elements, expected 3", k, len(triple))
			}
			i, err := triple[0].Int64()
			if err != nil {
				return nil, fmt.Errorf("BIOM sparse entry %d: %w", k, err)
			}
			j, err := triple[1].Int64()
			if err != nil {
				return nil, fmt.Errorf("BIOM sparse entry %d: %w", k, err)
			}
			if i < 0 || int(i) >= nRows || j < 0 || int(j) >= nCols {
				return nil, fmt.Errorf("BIOM sparse entry %d (%d,%d) is outside the %dx%d matrix", k, i, j, nRows, nCols)
			}
			v, err := triple[2].Float64()
			if err != nil {
				return nil, fmt.Errorf("BIOM sparse entry %d: %w", k, err)
			}
			values[i][j] = v
		}
	case "dense", "":
		if len(doc.Data) != nRows {
			return nil, fmt.Errorf("BIOM dense matrix has %d rows, expected %d", len(doc.Data), nRows)
		}
		for i, row := range doc.Data {
			if len(row) != nCols {
				return nil, fmt.Errorf("BIOM dense row %d has %d values, expected %d", i, len(row), nCols)
			}
			for j, cell := range row {
				v, err := cell.Float64()
				if err != nil {
					return nil, fmt.Errorf("BIOM dense cell (%d,%d): %w", i, j, err)
				}
				values[i][j] = v
			}
		}
	default:
		return nil, fmt.Errorf("BIOM matrix_type %q is not supported", doc.MatrixType)
	}

	return NewWithTaxonomy(featureIDs, sampleIDs, values, taxonomy)
}

// parseTaxonomyMetadata pulls the taxonomy out of a row's metadata, which may
// be null, a list of ranks, or a single ';'-joined string.
func parseTaxonomyMetadata(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var md map[string]json.RawMessage
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, err
	}

	for _, key := range []string{"taxonomy", "Taxonomy"} {
		tax, ok := md[key]
		if !ok || string(tax) == "null" {
			continue
		}

		var ranks []string
		if err := json.Unmarshal(tax, &ranks); err == nil {
			return trimRanks(ranks), nil
		}

		var joined string
		if err := json.Unmarshal(tax, &joined); err != nil {
			return nil, fmt.Errorf("taxonomy is neither a list nor a string")
		}
		return SplitTaxonomy(joined), nil
	}

	return nil, nil
}

// WriteBIOM writes t as a sparse BIOM 1.0 JSON document.
func WriteBIOM(w io.Writer, t *Table, id string) error {
	doc := biomDocument{
		ID:                id,
		Format:            biomFormat,
		FormatURL:         "http://biom-format.org",
		Type:              "OTU table",
		GeneratedBy:       "biomisc",
		Date:              time.Now().UTC().Format(time.RFC3339),
		MatrixType:        "sparse",
		MatrixElementType: "float",
		Shape:             [2]int{t.NumFeatures(), t.NumSamples()},
		Data:              [][]json.Number{},
	}

	for fi, fid := range t.featureIDs {
		entry := biomEntry{ID: fid, Metadata: json.RawMessage("null")}
		if t.taxonomy != nil {
			md, err := json.Marshal(map[string][]string{"taxonomy": t.taxonomy[fi]})
			if err != nil {
				return err
			}
			entry.Metadata = md
		}
		doc.Rows = append(doc.Rows, entry)

		for si, v := range t.values[fi] {
			if v == 0 {
				continue
			}
			doc.Data = append(doc.Data, []json.Number{
				json.Number(fmt.Sprint(fi)),
				json.Number(fmt.Sprint(si)),
				json.Number(formatValue(v)),
			})
		}
	}

	for _, sid := range t.sampleIDs {
		doc.Columns = append(doc.Columns, biomEntry{ID: sid, Metadata: json.RawMessage("null")})
	}

	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}
