// Package mapfile reads QIIME-style metadata mapping files: tab-separated,
// one row per sample, with a header row whose first column is #SampleID.
package mapfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/biomisc"
	"github.com/carbocation/pfx"
)

type Mapping struct {
	// Header holds the column names, including the leading #SampleID.
	Header []string

	// SampleIDs in file order
	SampleIDs []string

	// Rows maps a sample ID to its full row, aligned with Header.
	Rows map[string][]string
}

// Category is a group of samples sharing the same values in the columns
// used to gather them.
type Category struct {
	Name      string
	SampleIDs []string
}

func Load(ctx context.Context, path string, client *storage.Client) (*Mapping, error) {
	rc, err := biomisc.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	m, err := Parse(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return m, nil
}

// Parse reads a mapping file. Lines beginning with '#' other than the header
// are comments. Short rows are padded with empty values.
func Parse(r io.Reader) (*Mapping, error) {
	m := &Mapping{Rows: make(map[string][]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")

		if m.Header == nil {
			if strings.HasPrefix(text, "#") && !strings.EqualFold(strings.TrimSpace(fields[0]), "#SampleID") {
				continue
			}
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			m.Header = fields
			continue
		}

		if strings.HasPrefix(text, "#") {
			continue
		}

		if len(fields) > len(m.Header) {
			return nil, fmt.Errorf("line %d has %d columns, but the header has %d", line, len(fields), len(m.Header))
		}
		for len(fields) < len(m.Header) {
			fields = append(fields, "")
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		sid := fields[0]
		if _, exists := m.Rows[sid]; exists {
			return nil, fmt.Errorf("line %d: sample %q appears more than once", line, sid)
		}
		m.Rows[sid] = fields
		m.SampleIDs = append(m.SampleIDs, sid)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if m.Header == nil {
		return nil, fmt.Errorf("no header row found")
	}

	return m, nil
}

// Column returns the index of a header column.
func (m *Mapping) Column(name string) (int, error) {
	for i, col := range m.Header {
		if col == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("column %q is not in the mapping file header (%s)", name, strings.Join(m.Header, ", "))
}

// Value returns the value of column for a sample.
func (m *Mapping) Value(sampleID, column string) (string, bool) {
	row, ok := m.Rows[sampleID]
	if !ok {
		return "", false
	}
	i, err := m.Column(column)
	if err != nil {
		return "", false
	}

	return row[i], true
}

// GatherCategories groups samples by the values of the given columns. With
// more than one column, the category name is the values joined by '.'.
// Categories and their members keep file order.
func (m *Mapping) GatherCategories(columns []string) ([]Category, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no category columns given")
	}

	idx := make([]int, 0, len(columns))
	for _, col := range columns {
		i, err := m.Column(strings.TrimSpace(col))
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}

	var out []Category
	position := make(map[string]int)
	for _, sid := range m.SampleIDs {
		row := m.Rows[sid]

		parts := make([]string, 0, len(idx))
		for _, i := range idx {
			parts = append(parts, row[i])
		}
		name := strings.Join(parts, ".")

		p, ok := position[name]
		if !ok {
			p = len(out)
			position[name] = p
			out = append(out, Category{Name: name})
		}
		out[p].SampleIDs = append(out[p].SampleIDs, sid)
	}

	return out, nil
}
