package main

import (
	"encoding/csv"
	"io"
	"log"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/biomisc/doc"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
)

func tabWriter(w io.Writer) *gocsv.SafeCSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return gocsv.NewSafeCSVWriter(cw)
}

func summarize(a *doc.Analysis) {
	overlap := make([]float64, len(a.Points))
	dissimilarity := make([]float64, len(a.Points))
	for i, p := range a.Points {
		overlap[i] = p.Overlap
		dissimilarity[i] = p.Dissimilarity
	}

	logStats("Overlap", overlap)
	logStats("Dissimilarity", dissimilarity)
	log.Printf("LOWESS R² = %.4f\n", a.RSquared)

	if err := printHistogram(os.Stderr, dissimilarity); err != nil {
		log.Println(err)
	}
}

func logStats(name string, values []float64) {
	data := stats.LoadRawData(values)

	mean, err := data.Mean()
	if err != nil {
		log.Printf("%s: %v\n", name, err)
		return
	}
	median, err := data.Median()
	if err != nil {
		log.Printf("%s: %v\n", name, err)
		return
	}
	sd, err := data.StandardDeviation()
	if err != nil {
		log.Printf("%s: %v\n", name, err)
		return
	}

	log.Printf("%s: mean %.4f, median %.4f, SD %.4f (N=%d)\n", name, mean, median, sd, data.Len())
}

// printHistogram draws an ASCII histogram. Constant data has no spread to
// bin and is skipped.
func printHistogram(w io.Writer, values []float64) error {
	lo, err := stats.Min(values)
	if err != nil {
		return err
	}
	hi, err := stats.Max(values)
	if err != nil {
		return err
	}
	if hi <= lo {
		return nil
	}

	hist := histogram.Hist(25, values)
	return histogram.Fprint(w, hist, histogram.Linear(5))
}
