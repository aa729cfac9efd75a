// biomfilter keeps the samples listed in a mapping file's #SampleID column,
// drops features with no remaining abundance, and records which features
// were dropped.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/biomisc"
	"github.com/carbocation/biomisc/abundance"
	_ "github.com/carbocation/biomisc/compileinfoprint"
	"github.com/carbocation/biomisc/mapfile"
	"github.com/carbocation/pfx"
)

const BufferSize = 4096 * 8

var STDOUT = bufio.NewWriterSize(os.Stdout, BufferSize)

var client *storage.Client

func main() {
	defer STDOUT.Flush()

	var tablePath, mapPath, outPath, droppedPath string

	flag.StringVar(&tablePath, "table", "", "Abundance table (BIOM JSON or tab-separated), local or gs://")
	flag.StringVar(&mapPath, "map", "", "Mapping file whose #SampleID column lists the samples to keep")
	flag.StringVar(&outPath, "out", "", "(Optional) Output table. A .biom or .json extension writes BIOM JSON, anything else tab-separated. Defaults to tab-separated on stdout.")
	flag.StringVar(&droppedPath, "dropped", "", "(Optional) File that receives the dropped feature IDs, one per line.")
	flag.Parse()

	if tablePath == "" || mapPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -table and -map")
	}

	if biomisc.NeedsStorageClient(tablePath, mapPath) {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(context.Background(), tablePath, mapPath, outPath, droppedPath); err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}
}

func run(ctx context.Context, tablePath, mapPath, outPath, droppedPath string) error {
	table, err := abundance.Load(ctx, tablePath, client)
	if err != nil {
		return err
	}

	m, err := mapfile.Load(ctx, mapPath, client)
	if err != nil {
		return err
	}

	filtered, dropped, err := filter(table, m.SampleIDs)
	if err != nil {
		return err
	}
	log.Printf("%d sample IDs retained from %s\n", filtered.NumSamples(), tablePath)
	log.Printf("%d feature IDs filtered out of %s\n", len(dropped), tablePath)

	if outPath == "" {
		if err := abundance.WriteDelimited(STDOUT, filtered); err != nil {
			return err
		}
	} else if err := writeFile(outPath, func(w io.Writer) error { return abundance.Write(w, outPath, filtered) }); err != nil {
		return err
	}

	if droppedPath != "" {
		return writeFile(droppedPath, func(w io.Writer) error { return writeIDs(w, dropped) })
	}

	return nil
}

// filter restricts the table to the mapped samples it contains and removes
// features left with zero total abundance.
func filter(table *abundance.Table, keep []string) (*abundance.Table, []string, error) {
	present := make([]string, 0, len(keep))
	for _, sid := range keep {
		if !table.HasSample(sid) {
			log.Printf("Sample %s is in the mapping file but not the table; skipping\n", sid)
			continue
		}
		present = append(present, sid)
	}
	if len(present) == 0 {
		return nil, nil, fmt.Errorf("none of the %d mapped samples are in the table", len(keep))
	}

	subset, err := table.FilterSamples(present)
	if err != nil {
		return nil, nil, err
	}

	filtered, dropped := subset.DropEmptyFeatures()

	return filtered, dropped, nil
}

func writeIDs(w io.Writer, ids []string) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		fmt.Fprintln(bw, id)
	}
	return bw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := write(f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return f.Close()
}
