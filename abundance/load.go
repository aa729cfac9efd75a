package abundance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/biomisc"
	"github.com/carbocation/pfx"
)

// Load reads a table from a local or gs:// path. Compressed inputs are
// decompressed transparently.
func Load(ctx context.Context, path string, client *storage.Client) (*Table, error) {
	rc, err := biomisc.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// Parse detects whether data is BIOM JSON or a delimited OTU table and parses
// it accordingly.
func Parse(data []byte) (*Table, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	if trimmed[0] == '{' {
		return ReadBIOM(bytes.NewReader(trimmed))
	}

	sample := trimmed
	if len(sample) > 64*1024 {
		sample = sample[:64*1024]
	}

	return ReadDelimited(bytes.NewReader(data), biomisc.DetermineDelimiter(sample))
}

// Write serializes t in the format implied by path's extension: .biom and
// .json produce BIOM JSON, anything else a tab-separated table.
func Write(w io.Writer, path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".biom", ".json":
		return WriteBIOM(w, t, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	return WriteDelimited(w, t)
}
