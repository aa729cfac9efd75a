// vcfcount tallies, for every sample in a VCF, the number of heterozygous,
// non-reference, or singleton genotypes at biallelic SNVs.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/biomisc"
	_ "github.com/carbocation/biomisc/compileinfoprint"
	"github.com/carbocation/biomisc/vcfcount"
)

const BufferSize = 4096 * 8

var STDOUT = bufio.NewWriterSize(os.Stdout, BufferSize)

var client *storage.Client

type Config struct {
	VCFPath          string
	Mode             vcfcount.Mode
	Filter           vcfcount.Filter
	Region           string
	MapPath          string
	PopulationColumn string
	OutPath          string
	Summary          bool
}

func main() {
	defer STDOUT.Flush()

	var cfg Config
	var mode string

	flag.StringVar(&cfg.VCFPath, "vcf", "", "VCF file (plain, gzip, or bgzip), local or gs://")
	flag.StringVar(&mode, "mode", string(vcfcount.Het), "What to count: het, nonref, or singleton")
	flag.StringVar(&cfg.Filter.Chromosome, "chromosome", "", "(Optional) Only count records on this chromosome, with or without the chr prefix")
	flag.BoolVar(&cfg.Filter.Haploid, "haploid", false, "Skip X-chromosome pseudoautosomal regions (GRCh37), for counting hemizygous samples")
	flag.StringVar(&cfg.Region, "region", "", "(Optional) chr:start-end to fetch through the tabix index (.tbi) instead of reading the whole file")
	flag.StringVar(&cfg.MapPath, "map", "", "(Optional) Tab-separated sample metadata with a header; the first column is the sample ID. Counts are joined onto it.")
	flag.StringVar(&cfg.PopulationColumn, "population_column", "", "(Optional) Column of -map holding the population. Defaults to the second column.")
	flag.StringVar(&cfg.OutPath, "out", "", "(Optional) Output file. Defaults to stdout.")
	flag.BoolVar(&cfg.Summary, "summary", false, "Log per-population mean, SD, and median counts (requires -map)")
	flag.Parse()

	if cfg.VCFPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -vcf")
	}

	var err error
	cfg.Mode, err = vcfcount.ParseMode(mode)
	if err != nil {
		log.Fatalln(err)
	}

	if cfg.Summary && cfg.MapPath == "" {
		log.Fatalln("-summary requires -map")
	}

	if biomisc.NeedsStorageClient(cfg.VCFPath, cfg.MapPath) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(context.Background(), cfg); err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}

	log.Println("Completed")
}
