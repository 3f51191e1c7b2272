// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import "github.com/AleutianAI/ClimateLake/services/datalake/dataset"

// SeriesProvider is the slice of the data access facade the report
// builder consumes. The analytics engine never touches raw records or
// cache state.
type SeriesProvider interface {
	Series(iso3, indicator string) []dataset.Point
	CountryName(iso3 string) string
	IndicatorNames() []string
}

// IndicatorReport is one indicator's section of a country report.
type IndicatorReport struct {
	TimeSeries  []dataset.Point `json:"time_series"`
	LatestValue *float64        `json:"latest_value,omitempty"`
	Growth5YPct *float64        `json:"growth_5y_pct,omitempty"`
	Forecast    *ForecastResult `json:"forecast"`
}

// CountryReport is the full analytical report for one country: the time
// series of every indicator plus a trend projection for each.
type CountryReport struct {
	ISO3       string                     `json:"iso3"`
	Country    string                     `json:"country"`
	Indicators map[string]IndicatorReport `json:"indicators"`
}

// BuildCountryReport assembles the report for one country. Indicators
// without data get an empty time series and a nil forecast.
func BuildCountryReport(src SeriesProvider, iso3 string, targetYear int) CountryReport {
	report := CountryReport{
		ISO3:       iso3,
		Country:    src.CountryName(iso3),
		Indicators: make(map[string]IndicatorReport),
	}

	for _, indicator := range src.IndicatorNames() {
		series := src.Series(iso3, indicator)
		if len(series) == 0 {
			report.Indicators[indicator] = IndicatorReport{TimeSeries: []dataset.Point{}}
			continue
		}

		ts := make([]dataset.Point, len(series))
		for i, p := range series {
			ts[i] = dataset.Point{Year: p.Year, Value: dataset.Round(p.Value, 4)}
		}

		latest := dataset.Round(series[len(series)-1].Value, 4)

		var growthPct *float64
		if gs := src.Series(iso3, indicator+dataset.GrowthSuffix); len(gs) > 0 {
			v := dataset.Round(gs[len(gs)-1].Value*100, 2)
			growthPct = &v
		}

		forecast := ForecastTrend(series, targetYear)
		report.Indicators[indicator] = IndicatorReport{
			TimeSeries:  ts,
			LatestValue: &latest,
			Growth5YPct: growthPct,
			Forecast:    &forecast,
		}
	}
	return report
}
