// doc computes the Dissimilarity-Overlap Curve of a set of microbiome
// samples: pairwise overlap and root Jensen-Shannon dissimilarity, a LOWESS
// fit, an optional bootstrap confidence band, and the accompanying figures.
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
	"github.com/carbocation/biomisc/doc"
)

const BufferSize = 4096 * 8

var STDOUT = bufio.NewWriterSize(os.Stdout, BufferSize)

// Only initialized when an input lives in Google Storage
var client *storage.Client

func main() {
	defer STDOUT.Flush()

	var configPath string
	var groupBy, samples flagSlice

	defaults := Options{
		Frac:            0.5,
		Iterations:      doc.DefaultBootstrapOptions().Iterations,
		ResidPlot:       2,
		LowerPercentile: doc.DefaultBootstrapOptions().LowerPercentile,
		UpperPercentile: doc.DefaultBootstrapOptions().UpperPercentile,
	}
	opts := defaults

	flag.StringVar(&configPath, "config", "", "(Optional) JSON file supplying any of the options below. Flags that are set explicitly take precedence.")
	flag.StringVar(&opts.MapPath, "map", "", "(Optional) Metadata mapping file (#SampleID header). Required with -group_by.")
	flag.Var(&groupBy, "group_by", "(Optional) Mapping file column(s) whose categories select the samples. May be repeated or comma-separated.")
	flag.Var(&samples, "sample", "(Optional) Sample ID to include. May be repeated or comma-separated. Overrides -map/-group_by.")
	flag.Float64Var(&opts.Frac, "frac", opts.Frac, "Fraction of the data used for each LOWESS local regression.")
	flag.IntVar(&opts.Iterations, "iterations", opts.Iterations, "Number of bootstrap replicates for the confidence band.")
	flag.BoolVar(&opts.CI, "ci", false, "Estimate and plot a bootstrap confidence band.")
	flag.Float64Var(&opts.LowerPercentile, "lower", opts.LowerPercentile, "Lower percentile of the bootstrap band.")
	flag.Float64Var(&opts.UpperPercentile, "upper", opts.UpperPercentile, "Upper percentile of the bootstrap band.")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed for the bootstrap. 0 seeds from the clock.")
	flag.StringVar(&opts.Title, "title", "", "(Optional) Figure title.")
	flag.StringVar(&opts.SaveImage, "save_image", "", "(Optional) Path for the DOC figure. The extension (.png or .svg) picks the format.")
	flag.IntVar(&opts.ResidPlot, "residplot", opts.ResidPlot, "Polynomial order for the residual plot.")
	flag.StringVar(&opts.SaveResidPlot, "save_residplot", "", "(Optional) Path for the residual figure.")
	flag.StringVar(&opts.SaveCalc, "save_calc", "", "(Optional) Path for the tab-separated per-pair results. Printed to stdout otherwise.")
	flag.Usage = func() {
		log.Println("Usage: doc [flags] abundance_table")
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.GroupBy = groupBy
	opts.Samples = samples
	if flag.NArg() > 0 {
		opts.TablePath = flag.Arg(0)
	}

	if configPath != "" {
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

		config, err := ParseJSONConfigFromPath(configPath, defaults)
		if err != nil {
			log.Fatalln(err)
		}
		opts = merge(config, opts, set)
	}

	if opts.TablePath == "" {
		flag.Usage()
		log.Fatalln("Please provide the abundance table (BIOM or tab-separated) as an argument or in -config")
	}

	if len(opts.GroupBy) > 0 && opts.MapPath == "" {
		flag.Usage()
		log.Fatalln("-group_by requires -map")
	}

	if biomisc.NeedsStorageClient(opts.TablePath, opts.MapPath) {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(context.Background(), opts); err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}

	log.Println("Completed")
}
