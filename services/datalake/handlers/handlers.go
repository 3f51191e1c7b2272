// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers of the data lake service.
//
// Handlers are thin adapters: they validate path parameters, call the
// collector facade or the analytics package, and shape the JSON response.
// All domain logic lives below them.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/ClimateLake/pkg/validation"
	"github.com/AleutianAI/ClimateLake/services/datalake/analytics"
	"github.com/AleutianAI/ClimateLake/services/datalake/collector"
)

// HealthCheck reports process liveness and the data load state.
func HealthCheck(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"data_state": col.State().String(),
			"countries":  len(col.AllCountries()),
		})
	}
}

// GetMasterData serves the flat latest-value snapshot, one row per
// country, as a bare array for v1 compatibility.
func GetMasterData(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, col.Snapshot())
	}
}

// GetCountryProfile serves the nested cluster -> indicator profile for one
// country.
func GetCountryProfile(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		iso3, err := validation.SanitizeISO3(c.Param("iso3"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, col.CountryProfile(iso3))
	}
}

// GetCountryReport serves the per-indicator time series, growth, and trend
// forecast report for one country. targetYear is the default forecast
// horizon; a target_year query parameter overrides it.
func GetCountryReport(col *collector.Collector, targetYear int) gin.HandlerFunc {
	return func(c *gin.Context) {
		iso3, err := validation.SanitizeISO3(c.Param("iso3"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		year, ok := targetYearParam(c, targetYear)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, analytics.BuildCountryReport(col, iso3, year))
	}
}

// GetClusterData serves the deep nested iso3 -> year -> indicator map for
// one policy cluster.
func GetClusterData(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		cluster, err := validation.SanitizeIndicator(c.Param("cluster"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data := col.ClusterData(cluster)
		c.JSON(http.StatusOK, gin.H{
			"cluster":   cluster,
			"countries": len(data),
			"data":      data,
		})
	}
}

// correlationResponse flattens the analytics result alongside the
// indicator pair, matching the external contract.
type correlationResponse struct {
	XIndicator string `json:"x_indicator"`
	YIndicator string `json:"y_indicator"`
	analytics.CorrelationResult
}

// GetCorrelation computes the cross-country Pearson correlation between the
// latest values of two indicators.
func GetCorrelation(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		x, err := validation.SanitizeIndicator(c.Param("x"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		y, err := validation.SanitizeIndicator(c.Param("y"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		xLatest, yLatest := col.Latest(x), col.Latest(y)
		if len(xLatest) == 0 || len(yLatest) == 0 {
			// Unknown indicator or no data at all: an empty skeleton,
			// not an error.
			c.JSON(http.StatusOK, correlationResponse{
				XIndicator:        x,
				YIndicator:        y,
				CorrelationResult: analytics.CorrelationResult{Scatter: []analytics.ScatterPoint{}},
			})
			return
		}

		res := analytics.Correlation(xLatest, yLatest)
		for i := range res.Scatter {
			res.Scatter[i].Name = col.CountryName(res.Scatter[i].ISO3)
		}
		c.JSON(http.StatusOK, correlationResponse{
			XIndicator:        x,
			YIndicator:        y,
			CorrelationResult: res,
		})
	}
}

// GetGreenGrowth ranks countries decoupling GDP growth from CO2 emissions.
func GetGreenGrowth(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		co2 := col.Latest("co2_emissions" + collector.GrowthSuffix)
		gdp := col.Latest("gdp_growth" + collector.GrowthSuffix)

		names := make(map[string]string)
		analyzed := 0
		for iso3 := range gdp {
			if _, ok := co2[iso3]; ok {
				analyzed++
				names[iso3] = col.CountryName(iso3)
			}
		}

		rankings := analytics.GreenGrowth(co2, gdp, names, analytics.DefaultTopN)
		c.JSON(http.StatusOK, gin.H{
			"rankings":              rankings,
			"total_green_countries": len(rankings),
			"total_analyzed":        analyzed,
		})
	}
}

// forecastResponse flattens the analytics result alongside the query
// identifiers, matching the external contract.
type forecastResponse struct {
	ISO3      string `json:"iso3"`
	Indicator string `json:"indicator"`
	analytics.ForecastResult
}

// GetForecast serves the linear trend forecast of one indicator for one
// country. targetYear is the default horizon; a target_year query parameter
// overrides it.
func GetForecast(col *collector.Collector, targetYear int) gin.HandlerFunc {
	return func(c *gin.Context) {
		iso3, err := validation.SanitizeISO3(c.Param("iso3"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		indicator, err := validation.SanitizeIndicator(c.Param("indicator"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		year, ok := targetYearParam(c, targetYear)
		if !ok {
			return
		}

		series := col.Series(iso3, indicator)
		if len(series) == 0 {
			c.JSON(http.StatusOK, forecastResponse{
				ISO3:      iso3,
				Indicator: indicator,
				ForecastResult: analytics.ForecastResult{
					TargetYear: year,
					Note:       fmt.Sprintf("No data for %s in %s", indicator, iso3),
				},
			})
			return
		}

		c.JSON(http.StatusOK, forecastResponse{
			ISO3:           iso3,
			Indicator:      indicator,
			ForecastResult: analytics.ForecastTrend(series, year),
		})
	}
}

// GetCountries lists every country present in the lake as a bare array.
func GetCountries(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, col.CountriesMeta())
	}
}

// GetIndicators lists the indicator catalog grouped by cluster.
func GetIndicators(col *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, col.IndicatorsMeta())
	}
}

// targetYearParam resolves the optional target_year query parameter,
// writing a 400 itself when the value is malformed.
func targetYearParam(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("target_year")
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1990 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_year: must be an integer between 1990 and 2100"})
		return 0, false
	}
	return year, true
}
