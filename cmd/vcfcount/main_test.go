package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/biomisc/mapfile"
	"github.com/carbocation/biomisc/vcfcount"
	"gopkg.in/guregu/null.v3"
)

const testVCF = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NA1	NA2	NA3
21	100	rs1	A	G	50	PASS	.	GT	0|1	0|0	1|1
21	200	rs2	C	T	50	PASS	.	GT	1|0	0|1	0|0
21	300	rs3	C	T	50	PASS	.	GT	1|0	0|0	0|0
`

const testPanel = `sample	pop	super_pop
NA1	GBR	EUR
NA2	GBR	EUR
NA3	YRI	AFR
NA4	YRI	AFR
`

func TestJoin(t *testing.T) {
	m, err := mapfile.Parse(strings.NewReader(testPanel))
	if err != nil {
		t.Fatal(err)
	}

	joined, err := join(m, "", map[string]int{"NA1": 3, "NA2": 1, "NA3": 0})
	if err != nil {
		t.Fatal(err)
	}

	expected := []JoinedCount{
		{"NA1", "GBR", null.IntFrom(3)},
		{"NA2", "GBR", null.IntFrom(1)},
		{"NA3", "YRI", null.IntFrom(0)},
		{"NA4", "YRI", null.Int{}},
	}
	if len(joined) != len(expected) {
		t.Fatalf("expected %d rows, got %d", len(expected), len(joined))
	}
	for i := range expected {
		if joined[i].SampleID != expected[i].SampleID || joined[i].Population != expected[i].Population ||
			joined[i].Count.Valid != expected[i].Count.Valid || joined[i].Count.Int64 != expected[i].Count.Int64 {
			t.Errorf("row %d: expected %+v, got %+v", i, expected[i], joined[i])
		}
	}

	superPop, err := join(m, "super_pop", nil)
	if err != nil {
		t.Fatal(err)
	}
	if superPop[2].Population != "AFR" {
		t.Errorf("expected the super_pop column, got %q", superPop[2].Population)
	}

	if _, err := join(m, "nope", nil); err == nil {
		t.Errorf("expected an error for an unknown column")
	}
}

func TestSummarizePopulations(t *testing.T) {
	rows := []JoinedCount{
		{"A", "GBR", null.IntFrom(2)},
		{"B", "GBR", null.IntFrom(4)},
		{"C", "GBR", null.IntFrom(9)},
		{"D", "YRI", null.IntFrom(1)},
		{"E", "YRI", null.Int{}},
	}

	summaries := summarizePopulations(rows)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 populations, got %d", len(summaries))
	}

	yri, gbr := summaries[0], summaries[1]
	if yri.Population != "YRI" || yri.N != 1 || yri.Mean != 1 || yri.Median != 1 {
		t.Errorf("unexpected YRI summary %+v", yri)
	}
	if gbr.Population != "GBR" || gbr.N != 3 || gbr.Mean != 5 || gbr.Median != 4 {
		t.Errorf("unexpected GBR summary %+v", gbr)
	}
	if math.Abs(gbr.SD-math.Sqrt(13)) > 1e-9 {
		t.Errorf("expected a sample SD of sqrt(13), got %v", gbr.SD)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "test.vcf")
	mapPath := filepath.Join(dir, "panel.txt")
	outPath := filepath.Join(dir, "counts.tsv")
	if err := os.WriteFile(vcfPath, []byte(testVCF), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mapPath, []byte(testPanel), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		VCFPath: vcfPath,
		Mode:    vcfcount.Singleton,
		MapPath: mapPath,
		OutPath: outPath,
		Summary: true,
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	expected := "sample\tpopulation\tcount\nNA1\tGBR\t2\nNA2\tGBR\t0\nNA3\tYRI\t0\nNA4\tYRI\t\n"
	if string(data) != expected {
		t.Errorf("expected\n%q\ngot\n%q", expected, data)
	}
}
