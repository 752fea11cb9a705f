package api

import (
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gridlock-systems/junction.report/internal/journal"
	"github.com/gridlock-systems/junction.report/internal/signal"
)

// Chart endpoints render quick HTML time-series plots straight from the
// journal using go-echarts. Debugging-only: no auth, no pagination beyond
// ?limit=.

func (s *Server) handleDensityChart(w http.ResponseWriter, r *http.Request) {
	s.renderSeriesChart(w, r, "Approach density", "vehicles/m", func(sample journal.ApproachSample) float64 {
		return sample.Density
	})
}

func (s *Server) handlePriorityChart(w http.ResponseWriter, r *http.Request) {
	s.renderSeriesChart(w, r, "Approach priority", "score", func(sample journal.ApproachSample) float64 {
		return sample.Priority
	})
}

func (s *Server) renderSeriesChart(w http.ResponseWriter, r *http.Request, title, yName string, value func(journal.ApproachSample) float64) {
	if s.journal == nil {
		s.writeJSONError(w, http.StatusNotFound, "journal not configured")
		return
	}
	limit := limitParam(r, 500)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("signal=%s last %d samples per approach", s.status.SignalID(), limit),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)

	var haveAxis bool
	for _, a := range signal.ApproachOrder {
		series, err := s.journal.ApproachSeries(string(a), limit)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(series) == 0 {
			continue
		}
		if !haveAxis {
			xs := make([]string, len(series))
			for i, sample := range series {
				xs[i] = fmt.Sprintf("%.0f", sample.SimTime)
			}
			line.SetXAxis(xs)
			haveAxis = true
		}
		data := make([]opts.LineData, len(series))
		for i, sample := range series {
			data[i] = opts.LineData{Value: value(sample)}
		}
		line.AddSeries(string(a), data)
	}

	if !haveAxis {
		s.writeJSONError(w, http.StatusNotFound, "no journaled samples yet")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
