package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/biomisc/corr"
)

const testTable = `#OTU ID	S1	S2	S3	S4	S5	S6	taxonomy
OTU1	10	20	30	40	50	60	k__Bacteria; g__Bacteroides; s__fragilis
OTU2	60	50	40	30	20	10	k__Bacteria; g__Prevotella
OTU3	5	5	5	5	5	5	k__Bacteria; c__Clostridia
`

const testMap = `#SampleID	Site
S1	gut
S2	gut
S3	gut
S4	gut
S5	gut
S6	gut
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "otus.txt")
	mapPath := filepath.Join(dir, "map.txt")
	outPath := filepath.Join(dir, "corr.tsv")
	if err := os.WriteFile(tablePath, []byte(testTable), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mapPath, []byte(testMap), 0644); err != nil {
		t.Fatal(err)
	}

	opts := corr.DefaultOptions()
	opts.Workers = 2
	if err := run(context.Background(), tablePath, mapPath, "Site", outPath, opts); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "Category\tVariable\tby Variable\tCorrelation\tp value" {
		t.Errorf("unexpected header %q", lines[0])
	}

	found := false
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "gut\tBacteroides_fragilis\tPrevotella_spp.\t-1\t") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the perfect anticorrelation in the output, got %q", data)
	}

	if err := run(context.Background(), tablePath, mapPath, "Nope", outPath, opts); err == nil {
		t.Errorf("expected an error for an unknown category column")
	}
}
