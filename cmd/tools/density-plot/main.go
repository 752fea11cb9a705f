// Command density-plot renders per-approach density and priority time
// series from a decision journal as PNG plots, for offline analysis of a
// recorded run.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gridlock-systems/junction.report/internal/journal"
	"github.com/gridlock-systems/junction.report/internal/security"
	"github.com/gridlock-systems/junction.report/internal/signal"
)

var (
	dbFile = flag.String("db", "journal.db", "Journal database path")
	outDir = flag.String("out", ".", "Output directory for PNG files")
	limit  = flag.Int("limit", 2000, "Max samples per approach")
)

// approachColors keeps series visually stable across both plots.
var approachColors = map[signal.Approach]color.RGBA{
	signal.North: {R: 220, G: 60, B: 60, A: 255},
	signal.South: {R: 60, G: 120, B: 220, A: 255},
	signal.East:  {R: 50, G: 170, B: 80, A: 255},
	signal.West:  {R: 230, G: 160, B: 30, A: 255},
}

func main() {
	flag.Parse()

	if _, err := os.Stat(*dbFile); err != nil {
		log.Fatalf("journal database not found: %v", err)
	}

	j, err := journal.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer j.Close()

	if err := render(j, "density", "density (veh/m)", func(s journal.ApproachSample) float64 { return s.Density }); err != nil {
		log.Fatalf("density plot: %v", err)
	}
	if err := render(j, "priority", "priority score", func(s journal.ApproachSample) float64 { return s.Priority }); err != nil {
		log.Fatalf("priority plot: %v", err)
	}
}

func render(j *journal.Journal, name, yLabel string, value func(journal.ApproachSample) float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Per-approach %s", name)
	p.X.Label.Text = "simulation time (s)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	plotted := 0
	for _, a := range signal.ApproachOrder {
		series, err := j.ApproachSeries(string(a), *limit)
		if err != nil {
			return err
		}
		if len(series) == 0 {
			continue
		}

		xys := make(plotter.XYs, len(series))
		for i, s := range series {
			xys[i].X = s.SimTime
			xys[i].Y = value(s)
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = approachColors[a]
		p.Add(line)
		p.Legend.Add(string(a), line)
		plotted++
	}

	if plotted == 0 {
		return fmt.Errorf("no journaled samples to plot")
	}

	out := filepath.Join(*outDir, fmt.Sprintf("%s.png", name))
	if err := security.ValidateExportPath(out); err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, out); err != nil {
		return err
	}
	log.Printf("wrote %s", out)
	return nil
}
