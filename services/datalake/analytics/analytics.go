// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analytics implements the derived analyses over facade outputs:
// cross-indicator correlation, green-growth decoupling rankings, and
// linear trend forecasts.
//
// Insufficient data is a structured result (null numeric fields plus an
// explanatory note), never an error. All statistics use gonum.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AleutianAI/ClimateLake/services/datalake/dataset"
)

// minSamples is the smallest aligned sample we compute statistics on.
const minSamples = 3

// DefaultTopN bounds the green-growth ranking length.
const DefaultTopN = 10

// ScatterPoint is one aligned observation of a correlation analysis.
type ScatterPoint struct {
	ISO3 string  `json:"iso3"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name,omitempty"`
}

// CorrelationResult reports a Pearson correlation between two indicator
// series aligned by country. PearsonR and PValue are nil when fewer than
// three countries align.
type CorrelationResult struct {
	PearsonR *float64       `json:"pearson_r"`
	PValue   *float64       `json:"p_value"`
	NSamples int            `json:"n_samples"`
	Scatter  []ScatterPoint `json:"scatter"`
	Note     string         `json:"error,omitempty"`
}

// Correlation aligns x and y on the countries present in both and computes
// the Pearson coefficient with a two-sided normal-approximation p-value.
// r is rounded to 4 digits, p to 6. Scatter lists every aligned triple in
// country order.
func Correlation(x, y map[string]float64) CorrelationResult {
	countries := make([]string, 0, len(x))
	for iso3, xv := range x {
		yv, ok := y[iso3]
		if !ok || math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		countries = append(countries, iso3)
	}
	sort.Strings(countries)

	if len(countries) < minSamples {
		return CorrelationResult{
			NSamples: len(countries),
			Scatter:  []ScatterPoint{},
			Note:     "Insufficient data points (need >= 3).",
		}
	}

	xs := make([]float64, len(countries))
	ys := make([]float64, len(countries))
	scatter := make([]ScatterPoint, len(countries))
	for i, iso3 := range countries {
		xs[i] = x[iso3]
		ys[i] = y[iso3]
		scatter[i] = ScatterPoint{ISO3: iso3, X: x[iso3], Y: y[iso3]}
	}

	r := stat.Correlation(xs, ys, nil)
	p := pearsonPValue(r, len(countries))

	rOut := dataset.Round(r, 4)
	pOut := dataset.Round(p, 6)
	return CorrelationResult{
		PearsonR: &rOut,
		PValue:   &pOut,
		NSamples: len(countries),
		Scatter:  scatter,
	}
}

// pearsonPValue is the two-sided test of r != 0 with the t statistic
// evaluated against the standard normal.
func pearsonPValue(r float64, n int) float64 {
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)) / math.Sqrt(denom)
	return 2 * distuv.UnitNormal.Survival(math.Abs(t))
}

// GreenGrowthEntry is one ranked country in the decoupling listing. The
// growth figures and the score are percentage-scaled and rounded to 2
// digits.
type GreenGrowthEntry struct {
	Rank            int     `json:"rank"`
	ISO3            string  `json:"iso3"`
	Country         string  `json:"country"`
	GDPGrowth5Y     float64 `json:"gdp_growth_5y"`
	CO2Growth5Y     float64 `json:"co2_growth_5y"`
	DecouplingScore float64 `json:"decoupling_score"`
}

// GreenGrowth ranks countries decoupling economic growth from emissions:
// GDP growth positive while CO2 growth negative. Inputs are fractional
// 5-year CAGRs keyed by country; score = gdp_growth - co2_growth. Returns
// at most topN entries, best first, empty when no country qualifies.
func GreenGrowth(co2Growth, gdpGrowth map[string]float64, names map[string]string, topN int) []GreenGrowthEntry {
	if topN <= 0 {
		topN = DefaultTopN
	}

	type row struct {
		iso3  string
		gdp   float64
		co2   float64
		score float64
	}
	var green []row
	for iso3, gdp := range gdpGrowth {
		co2, ok := co2Growth[iso3]
		if !ok || math.IsNaN(gdp) || math.IsNaN(co2) {
			continue
		}
		if gdp > 0 && co2 < 0 {
			green = append(green, row{iso3: iso3, gdp: gdp, co2: co2, score: gdp - co2})
		}
	}
	if len(green) == 0 {
		return []GreenGrowthEntry{}
	}

	sort.Slice(green, func(i, j int) bool {
		if green[i].score != green[j].score {
			return green[i].score > green[j].score
		}
		return green[i].iso3 < green[j].iso3
	})
	if len(green) > topN {
		green = green[:topN]
	}

	out := make([]GreenGrowthEntry, 0, len(green))
	for i, g := range green {
		display := g.iso3
		if name, ok := names[g.iso3]; ok {
			display = name
		}
		out = append(out, GreenGrowthEntry{
			Rank:            i + 1,
			ISO3:            g.iso3,
			Country:         display,
			GDPGrowth5Y:     dataset.Round(g.gdp*100, 2),
			CO2Growth5Y:     dataset.Round(g.co2*100, 2),
			DecouplingScore: dataset.Round(g.score*100, 2),
		})
	}
	return out
}

// TrendPoint is one year of a fitted trend line. Actual is nil for the
// trailing projection point.
type TrendPoint struct {
	Year   int      `json:"year"`
	Actual *float64 `json:"actual"`
	Trend  float64  `json:"trend"`
}

// ForecastResult reports an ordinary least-squares trend fit and its
// projection. PredictedValue is nil when fewer than three observations
// exist.
type ForecastResult struct {
	TargetYear     int          `json:"target_year"`
	PredictedValue *float64     `json:"predicted_value"`
	SlopePerYear   *float64     `json:"slope_per_year,omitempty"`
	RSquared       *float64     `json:"r_squared,omitempty"`
	PValue         *float64     `json:"p_value,omitempty"`
	TrendPoints    []TrendPoint `json:"trend_points,omitempty"`
	Note           string       `json:"error,omitempty"`
}

// ForecastTrend fits value against year by ordinary least squares and
// projects to targetYear. The result carries one trend point per observed
// year plus a trailing point for the target year.
func ForecastTrend(series []dataset.Point, targetYear int) ForecastResult {
	if len(series) < minSamples {
		return ForecastResult{
			TargetYear: targetYear,
			Note:       "Insufficient data for trend analysis.",
		}
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r := stat.Correlation(xs, ys, nil)
	rSquared := r * r
	predicted := slope*float64(targetYear) + intercept
	p := slopePValue(xs, ys, intercept, slope)

	points := make([]TrendPoint, 0, len(series)+1)
	for i, obs := range series {
		actual := dataset.Round(obs.Value, 4)
		points = append(points, TrendPoint{
			Year:   obs.Year,
			Actual: &actual,
			Trend:  dataset.Round(slope*xs[i]+intercept, 4),
		})
	}
	points = append(points, TrendPoint{
		Year:  targetYear,
		Trend: dataset.Round(predicted, 4),
	})

	predOut := dataset.Round(predicted, 4)
	slopeOut := dataset.Round(slope, 6)
	rsqOut := dataset.Round(rSquared, 4)
	pOut := dataset.Round(p, 6)
	return ForecastResult{
		TargetYear:     targetYear,
		PredictedValue: &predOut,
		SlopePerYear:   &slopeOut,
		RSquared:       &rsqOut,
		PValue:         &pOut,
		TrendPoints:    points,
	}
}

// slopePValue is the two-sided test of slope != 0, with the t statistic
// evaluated against the standard normal.
func slopePValue(xs, ys []float64, intercept, slope float64) float64 {
	n := float64(len(xs))
	xMean := stat.Mean(xs, nil)

	var sse, sxx float64
	for i := range xs {
		resid := ys[i] - (intercept + slope*xs[i])
		sse += resid * resid
		dx := xs[i] - xMean
		sxx += dx * dx
	}
	if sxx == 0 {
		return 1
	}
	if sse <= 0 {
		return 0
	}
	se := math.Sqrt(sse / (n - 2) / sxx)
	t := slope / se
	return 2 * distuv.UnitNormal.Survival(math.Abs(t))
}
