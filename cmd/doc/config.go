package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/carbocation/biomisc"
	"github.com/carbocation/pfx"
)

// Options is everything a DOC run needs. It can be filled from flags, from
// a JSON config file, or both.
type Options struct {
	TablePath       string   `json:"table"`
	MapPath         string   `json:"map"`
	GroupBy         []string `json:"group_by"`
	Samples         []string `json:"samples"`
	Frac            float64  `json:"frac"`
	Iterations      int      `json:"iterations"`
	CI              bool     `json:"ci"`
	Seed            int64    `json:"seed"`
	Title           string   `json:"title"`
	SaveImage       string   `json:"save_image"`
	ResidPlot       int      `json:"residplot"`
	SaveResidPlot   string   `json:"save_residplot"`
	SaveCalc        string   `json:"save_calc"`
	LowerPercentile float64  `json:"lower_percentile"`
	UpperPercentile float64  `json:"upper_percentile"`
}

// ParseJSONConfigFromPath reads Options from a JSON file. Keys that are
// absent keep the values already in defaults.
func ParseJSONConfigFromPath(path string, defaults Options) (Options, error) {
	out := defaults

	f, err := os.Open(biomisc.ExpandHome(path))
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	out.TablePath = biomisc.ExpandHome(out.TablePath)
	out.MapPath = biomisc.ExpandHome(out.MapPath)
	out.SaveImage = biomisc.ExpandHome(out.SaveImage)
	out.SaveResidPlot = biomisc.ExpandHome(out.SaveResidPlot)
	out.SaveCalc = biomisc.ExpandHome(out.SaveCalc)

	return out, nil
}

// merge overlays the flags the user actually set on top of the config.
func merge(config, flags Options, set map[string]bool) Options {
	out := config

	if flags.TablePath != "" {
		out.TablePath = flags.TablePath
	}
	if set["map"] {
		out.MapPath = flags.MapPath
	}
	if set["group_by"] {
		out.GroupBy = flags.GroupBy
	}
	if set["sample"] {
		out.Samples = flags.Samples
	}
	if set["frac"] {
		out.Frac = flags.Frac
	}
	if set["iterations"] {
		out.Iterations = flags.Iterations
	}
	if set["ci"] {
		out.CI = flags.CI
	}
	if set["seed"] {
		out.Seed = flags.Seed
	}
	if set["title"] {
		out.Title = flags.Title
	}
	if set["save_image"] {
		out.SaveImage = flags.SaveImage
	}
	if set["residplot"] {
		out.ResidPlot = flags.ResidPlot
	}
	if set["save_residplot"] {
		out.SaveResidPlot = flags.SaveResidPlot
	}
	if set["save_calc"] {
		out.SaveCalc = flags.SaveCalc
	}
	if set["lower"] {
		out.LowerPercentile = flags.LowerPercentile
	}
	if set["upper"] {
		out.UpperPercentile = flags.UpperPercentile
	}

	return out
}
