package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/carbocation/biomisc/abundance"
	"github.com/carbocation/biomisc/doc"
	"github.com/carbocation/biomisc/mapfile"
	"github.com/carbocation/biomisc/plot"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/wcharczuk/go-chart/v2"
	"gopkg.in/guregu/null.v3"
)

// CalcRow is one line of the per-pair output.
type CalcRow struct {
	SampleA       string     `csv:"SampleA"`
	SampleB       string     `csv:"SampleB"`
	Overlap       float64    `csv:"Overlap"`
	Dissimilarity float64    `csv:"Dissimilarity"`
	LOWESS        float64    `csv:"LOWESS"`
	LOWESSMin     null.Float `csv:"LOWESS_min"`
	LOWESSMax     null.Float `csv:"LOWESS_max"`
}

func run(ctx context.Context, opts Options) error {
	table, err := abundance.Load(ctx, opts.TablePath, client)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d features across %d samples from %s\n", table.NumFeatures(), table.NumSamples(), opts.TablePath)

	samples, err := selectSamples(ctx, table, opts)
	if err != nil {
		return err
	}
	log.Printf("Computing the DOC over %d samples (%d pairs)\n", len(samples), doc.NumPairs(len(samples)))

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.CI {
		log.Printf("Bootstrapping %d replicates with seed %d\n", opts.Iterations, seed)
	}

	analysis, err := doc.Analyze(table.Normalize(), samples, doc.AnalysisOptions{
		Frac:      opts.Frac,
		Bootstrap: opts.CI,
		BootstrapOptions: doc.BootstrapOptions{
			Iterations:      opts.Iterations,
			LowerPercentile: opts.LowerPercentile,
			UpperPercentile: opts.UpperPercentile,
			Rand:            rand.New(rand.NewSource(seed)),
		},
	})
	if err != nil {
		return err
	}

	summarize(analysis)

	if err := saveCalc(opts.SaveCalc, analysis.Points); err != nil {
		return err
	}

	if opts.SaveImage != "" {
		err := plot.Save(opts.SaveImage, func(w io.Writer, rp chart.RendererProvider) error {
			return plot.DOC(w, rp, analysis.Points, analysis.RSquared, plot.Options{Title: opts.Title})
		})
		if err != nil {
			return err
		}
		log.Println("Saved DOC figure to", opts.SaveImage)
	}

	if opts.SaveResidPlot != "" {
		resid, err := doc.PolynomialResiduals(analysis.Points, opts.ResidPlot)
		if err != nil {
			return err
		}
		err = plot.Save(opts.SaveResidPlot, func(w io.Writer, rp chart.RendererProvider) error {
			return plot.Residuals(w, rp, analysis.Points, resid, plot.Options{Title: residualTitle(opts)})
		})
		if err != nil {
			return err
		}
		log.Println("Saved residual figure to", opts.SaveResidPlot)
	}

	return nil
}

func residualTitle(opts Options) string {
	if opts.Title == "" {
		return fmt.Sprintf("Residuals (order %d polynomial)", opts.ResidPlot)
	}
	return fmt.Sprintf("%s: residuals (order %d polynomial)", opts.Title, opts.ResidPlot)
}

// selectSamples picks, in priority order, the explicit sample list, the
// samples of the requested mapping categories, or every sample in the table.
func selectSamples(ctx context.Context, table *abundance.Table, opts Options) ([]string, error) {
	if len(opts.Samples) > 0 {
		return opts.Samples, nil
	}

	if len(opts.GroupBy) == 0 {
		return table.SampleIDs(), nil
	}

	m, err := mapfile.Load(ctx, opts.MapPath, client)
	if err != nil {
		return nil, err
	}

	categories, err := m.GatherCategories(opts.GroupBy)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, cat := range categories {
		n := 0
		for _, sid := range cat.SampleIDs {
			if !table.HasSample(sid) {
				log.Printf("Sample %s (category %s) is not in the abundance table; skipping\n", sid, cat.Name)
				continue
			}
			out = append(out, sid)
			n++
		}
		log.Printf("Category %s: %d samples\n", cat.Name, n)
	}

	return out, nil
}

func calcRows(points []doc.CurvePoint) []CalcRow {
	rows := make([]CalcRow, 0, len(points))
	for _, p := range points {
		row := CalcRow{
			SampleA:       p.A,
			SampleB:       p.B,
			Overlap:       p.Overlap,
			Dissimilarity: p.Dissimilarity,
			LOWESS:        p.LOWESS,
		}
		if p.HasCI {
			row.LOWESSMin = null.FloatFrom(p.Lower)
			row.LOWESSMax = null.FloatFrom(p.Upper)
		}
		rows = append(rows, row)
	}

	return rows
}

func writeCalc(w io.Writer, points []doc.CurvePoint) error {
	rows := calcRows(points)
	if err := gocsv.MarshalCSV(&rows, tabWriter(w)); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func saveCalc(path string, points []doc.CurvePoint) error {
	if path == "" {
		return writeCalc(STDOUT, points)
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := writeCalc(f, points); err != nil {
		f.Close()
		return err
	}
	log.Println("Saved per-pair results to", path)

	return f.Close()
}
