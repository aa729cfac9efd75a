package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/carbocation/biomisc/mapfile"
	"github.com/carbocation/biomisc/vcfcount"
	"github.com/carbocation/pfx"
	"github.com/carbocation/runningvariance"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"gopkg.in/guregu/null.v3"
)

// JoinedCount is a metadata row with the sample's count. Samples that are
// in the metadata but not the VCF have an empty count.
type JoinedCount struct {
	SampleID   string   `csv:"sample"`
	Population string   `csv:"population"`
	Count      null.Int `csv:"count"`
}

func run(ctx context.Context, cfg Config) error {
	counter, err := count(ctx, cfg)
	if err != nil {
		return err
	}

	for reason, n := range counter.Skipped {
		log.Printf("Skipped %d records: %s\n", n, reason)
	}

	w := io.Writer(STDOUT)
	if cfg.OutPath != "" {
		f, err := os.Create(cfg.OutPath)
		if err != nil {
			return pfx.Err(err)
		}
		defer f.Close()
		w = f
	}

	if cfg.MapPath == "" {
		counts := counter.Counts()
		return marshalTSV(w, &counts)
	}

	m, err := mapfile.Load(ctx, cfg.MapPath, client)
	if err != nil {
		return err
	}

	joined, err := join(m, cfg.PopulationColumn, counter.CountMap())
	if err != nil {
		return err
	}

	if cfg.Summary {
		summarize(joined)
	}

	return marshalTSV(w, &joined)
}

func count(ctx context.Context, cfg Config) (*vcfcount.Counter, error) {
	if cfg.Region != "" {
		region, err := vcfcount.ParseRegion(cfg.Region)
		if err != nil {
			return nil, err
		}
		return vcfcount.CountRegions(cfg.VCFPath, client, []vcfcount.Region{region}, cfg.Mode, cfg.Filter)
	}

	rdr, closer, err := vcfcount.Open(ctx, cfg.VCFPath, client)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	log.Println(len(rdr.Header.SampleNames), "samples found in", cfg.VCFPath)

	return vcfcount.CountAll(rdr, cfg.Mode, cfg.Filter)
}

// join attaches counts to the metadata rows, in metadata order.
func join(m *mapfile.Mapping, populationColumn string, counts map[string]int) ([]JoinedCount, error) {
	popIdx := 1
	if populationColumn != "" {
		var err error
		popIdx, err = m.Column(populationColumn)
		if err != nil {
			return nil, err
		}
	} else if len(m.Header) < 2 {
		return nil, fmt.Errorf("the mapping file has no population column")
	}

	out := make([]JoinedCount, 0, len(m.SampleIDs))
	missing := 0
	for _, sid := range m.SampleIDs {
		row := JoinedCount{SampleID: sid, Population: m.Rows[sid][popIdx]}
		if n, ok := counts[sid]; ok {
			row.Count = null.IntFrom(int64(n))
		} else {
			missing++
		}
		out = append(out, row)
	}

	if missing > 0 {
		log.Printf("%d samples in the mapping file were not in the VCF\n", missing)
	}

	return out, nil
}

// PopulationSummary describes the counts of one population.
type PopulationSummary struct {
	Population string
	N          int
	Mean       float64
	SD         float64
	Median     float64
}

func summarizePopulations(rows []JoinedCount) []PopulationSummary {
	running := make(map[string]*runningvariance.RunningStat)
	values := make(map[string][]float64)
	for _, r := range rows {
		if !r.Count.Valid {
			continue
		}
		rs, ok := running[r.Population]
		if !ok {
			rs = runningvariance.NewRunningStat()
			running[r.Population] = rs
		}
		rs.Push(float64(r.Count.Int64))
		values[r.Population] = append(values[r.Population], float64(r.Count.Int64))
	}

	out := make([]PopulationSummary, 0, len(running))
	for pop, rs := range running {
		median, err := stats.Median(values[pop])
		if err != nil {
			median = 0
		}
		out = append(out, PopulationSummary{
			Population: pop,
			N:          len(values[pop]),
			Mean:       rs.Mean(),
			SD:         rs.StandardDeviation(),
			Median:     median,
		})
	}

	// Lowest mean first
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean == out[j].Mean {
			return out[i].Population < out[j].Population
		}
		return out[i].Mean < out[j].Mean
	})

	return out
}

func summarize(rows []JoinedCount) {
	for _, s := range summarizePopulations(rows) {
		log.Printf("%s: N=%d mean=%.1f SD=%.1f median=%.1f\n", s.Population, s.N, s.Mean, s.SD, s.Median)
	}
}

func marshalTSV(w io.Writer, rows interface{}) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return pfx.Err(err)
	}

	return nil
}
