// featurecorr computes Spearman correlations between every pair of features
// of an abundance table within each category of a mapping column, and
// reports those that survive multiple-testing correction.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"runtime"

	"cloud.google.com/go/storage"
	"github.com/carbocation/biomisc"
	"github.com/carbocation/biomisc/abundance"
	_ "github.com/carbocation/biomisc/compileinfoprint"
	"github.com/carbocation/biomisc/corr"
	"github.com/carbocation/biomisc/mapfile"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

const BufferSize = 4096 * 8

var STDOUT = bufio.NewWriterSize(os.Stdout, BufferSize)

var client *storage.Client

func main() {
	defer STDOUT.Flush()

	var tablePath, mapPath, category, outPath, method string
	var alpha float64
	var workers int

	flag.StringVar(&tablePath, "table", "", "Abundance table (BIOM JSON or tab-separated), local or gs://")
	flag.StringVar(&mapPath, "map", "", "Mapping file associated with the table")
	flag.StringVar(&category, "category", "", "Mapping file column whose values define the categories")
	flag.StringVar(&outPath, "out", "", "(Optional) Output file. Defaults to stdout.")
	flag.StringVar(&method, "method", string(corr.BenjaminiHochberg), "Multiple testing correction: bonferroni, holm, fdr_bh, or fdr_by")
	flag.Float64Var(&alpha, "alpha", 0.05, "Keep correlations whose corrected p-value is below this")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Number of concurrent workers")
	flag.Parse()

	if tablePath == "" || mapPath == "" || category == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -table, -map, and -category")
	}

	mt, err := corr.ParseMethod(method)
	if err != nil {
		log.Fatalln(err)
	}

	if biomisc.NeedsStorageClient(tablePath, mapPath) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	opts := corr.Options{Method: mt, Alpha: alpha, Workers: workers}
	if err := run(context.Background(), tablePath, mapPath, category, outPath, opts); err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}
}

func run(ctx context.Context, tablePath, mapPath, category, outPath string, opts corr.Options) error {
	table, err := abundance.Load(ctx, tablePath, client)
	if err != nil {
		return err
	}

	transformed, err := corr.ArcsineSqrt(table)
	if err != nil {
		return err
	}

	m, err := mapfile.Load(ctx, mapPath, client)
	if err != nil {
		return err
	}

	categories, err := m.GatherCategories([]string{category})
	if err != nil {
		return err
	}
	for _, cat := range categories {
		log.Printf("Category %s: %d samples\n", cat.Name, len(cat.SampleIDs))
	}

	log.Printf("Correlating %d features pairwise with %d workers\n", table.NumFeatures(), opts.Workers)
	kept, summary, err := corr.Run(ctx, transformed, categories, opts)
	if err != nil {
		return err
	}
	log.Printf("%d correlations removed through multiple test correction (%s); %d kept\n", summary.Tests-summary.Kept, opts.Method, summary.Kept)
	if summary.Skipped > 0 {
		log.Printf("%d tests skipped in categories with fewer than 3 samples\n", summary.Skipped)
	}

	if outPath == "" {
		return writeTests(STDOUT, kept)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	if err := writeTests(f, kept); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func writeTests(w io.Writer, tests []corr.Test) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := gocsv.MarshalCSV(&tests, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return pfx.Err(err)
	}

	return nil
}
