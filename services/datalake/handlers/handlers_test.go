// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ClimateLake/services/datalake/catalog"
	"github.com/AleutianAI/ClimateLake/services/datalake/collector"
	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

type staticFetcher struct {
	data map[string][]worldbank.Record
}

func (f *staticFetcher) FetchMany(_ context.Context, indicators map[string]string) map[string][]worldbank.Record {
	out := make(map[string][]worldbank.Record, len(indicators))
	for name := range indicators {
		out[name] = f.data[name]
	}
	return out
}

type nullCache struct{}

func (nullCache) Read() map[string][]worldbank.Record { return nil }
func (nullCache) Write(map[string][]worldbank.Record) {}

func floatPtr(v float64) *float64 { return &v }

func records(iso3, name string, startYear int, values ...float64) []worldbank.Record {
	out := make([]worldbank.Record, 0, len(values))
	for i, v := range values {
		out = append(out, worldbank.Record{
			CountryISO3: iso3,
			Date:        strconv.Itoa(startYear + i),
			Value:       floatPtr(v),
			Country:     worldbank.CountryName{Value: name},
		})
	}
	return out
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	data := map[string][]worldbank.Record{
		"gdp_per_capita": records("USA", "United States", 2000, 100, 110, 120, 130, 140, 150),
		"co2_emissions":  records("USA", "United States", 2000, 10, 9, 8, 7, 6, 5),
	}
	col := collector.New(catalog.Default(), &staticFetcher{data: data}, nullCache{}, nil)
	require.NoError(t, col.Load(context.Background()))

	r := gin.New()
	r.GET("/health", HealthCheck(col))
	r.GET("/api/v1/data/master", GetMasterData(col))
	r.GET("/api/v2/country/:iso3", GetCountryProfile(col))
	r.GET("/api/v2/country/:iso3/report", GetCountryReport(col, 2030))
	r.GET("/api/v2/cluster/:cluster", GetClusterData(col))
	r.GET("/api/v2/analytics/correlation/:x/:y", GetCorrelation(col))
	r.GET("/api/v2/analytics/green-growth", GetGreenGrowth(col))
	r.GET("/api/v2/analytics/forecast/:iso3/:indicator", GetForecast(col, 2030))
	r.GET("/api/v2/meta/countries", GetCountries(col))
	r.GET("/api/v2/meta/indicators", GetIndicators(col))
	return r
}

func do(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return w, body
}

// doList is do for endpoints whose body is a bare JSON array.
func doList(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, []map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return w, body
}

func TestHealthCheck(t *testing.T) {
	w, body := do(t, newTestRouter(t), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "loaded", body["data_state"])
	assert.EqualValues(t, 1, body["countries"])
}

func TestGetMasterData(t *testing.T) {
	w, rows := doList(t, newTestRouter(t), "/api/v1/data/master")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "USA", row["iso3"])
	assert.Equal(t, "United States", row["country"])
	assert.EqualValues(t, 150, row["gdp_per_capita"])
	assert.Nil(t, row["inflation"])
}

func TestGetCountryProfile(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, "/api/v2/country/usa")
	assert.Equal(t, http.StatusOK, w.Code, "lowercase code must be normalized")
	assert.Equal(t, "USA", body["iso3"])
	assert.Equal(t, "United States", body["name"])
	data := body["data"].(map[string]any)
	require.Len(t, data, 4)
	gdp := data["economic_risk"].(map[string]any)["gdp_per_capita"].(map[string]any)
	assert.EqualValues(t, 150, gdp["current"])

	w, body = do(t, r, "/api/v2/country/bogus1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "invalid country code")
}

func TestGetCountryReport(t *testing.T) {
	w, body := do(t, newTestRouter(t), "/api/v2/country/USA/report")

	assert.Equal(t, http.StatusOK, w.Code)
	indicators := body["indicators"].(map[string]any)
	gdp := indicators["gdp_per_capita"].(map[string]any)
	assert.EqualValues(t, 150, gdp["latest_value"])
	forecast := gdp["forecast"].(map[string]any)
	assert.EqualValues(t, 2030, forecast["target_year"])
	assert.NotNil(t, forecast["predicted_value"])
}

func TestGetClusterData(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, "/api/v2/cluster/energy_transition")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["countries"])
	data := body["data"].(map[string]any)
	usa := data["USA"].(map[string]any)
	year := usa["2000"].(map[string]any)
	assert.EqualValues(t, 10, year["co2_emissions"])

	w, body = do(t, r, "/api/v2/cluster/unknown_cluster")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["countries"])
}

func TestGetCorrelation(t *testing.T) {
	r := newTestRouter(t)

	// Single country: below the sample floor, nulls plus a note, all
	// flat at the top level next to the indicator names.
	w, body := do(t, r, "/api/v2/analytics/correlation/gdp_per_capita/co2_emissions")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gdp_per_capita", body["x_indicator"])
	assert.Equal(t, "co2_emissions", body["y_indicator"])
	assert.Nil(t, body["pearson_r"])
	assert.EqualValues(t, 1, body["n_samples"])
	assert.NotEmpty(t, body["error"])

	// An indicator with no observations yields an empty skeleton, not
	// an error note.
	w, body = do(t, r, "/api/v2/analytics/correlation/inflation/co2_emissions")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inflation", body["x_indicator"])
	assert.EqualValues(t, 0, body["n_samples"])
	assert.Empty(t, body["scatter"])
	assert.NotContains(t, body, "error")

	w, body = do(t, r, "/api/v2/analytics/correlation/BAD!/co2_emissions")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "invalid indicator")
}

func TestGetGreenGrowth(t *testing.T) {
	w, body := do(t, newTestRouter(t), "/api/v2/analytics/green-growth")

	assert.Equal(t, http.StatusOK, w.Code)
	// gdp_growth has no data, so nothing qualifies and nothing intersects.
	assert.EqualValues(t, 0, body["total_green_countries"])
	assert.EqualValues(t, 0, body["total_analyzed"])
	assert.Empty(t, body["rankings"])
}

func TestGetForecast(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, "/api/v2/analytics/forecast/USA/gdp_per_capita")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USA", body["iso3"])
	assert.Equal(t, "gdp_per_capita", body["indicator"])
	assert.NotContains(t, body, "country")
	assert.EqualValues(t, 2030, body["target_year"])
	// Perfectly linear series: 100 + 10*(year-2000) -> 400 at 2030.
	assert.InDelta(t, 400, body["predicted_value"].(float64), 1e-6)

	w, _ = do(t, r, "/api/v2/analytics/forecast/USA/gdp_per_capita?target_year=2040")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, r, "/api/v2/analytics/forecast/USA/gdp_per_capita?target_year=banana")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "target_year")

	// Unknown country degrades to an in-band note, not an HTTP error.
	w, body = do(t, r, "/api/v2/analytics/forecast/ZZZ/gdp_per_capita")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["predicted_value"])
	assert.Equal(t, "No data for gdp_per_capita in ZZZ", body["error"])
	assert.EqualValues(t, 2030, body["target_year"])
}

func TestGetCountries(t *testing.T) {
	w, countries := doList(t, newTestRouter(t), "/api/v2/meta/countries")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, countries, 1)
	assert.Equal(t, "USA", countries[0]["iso3"])
	assert.Equal(t, "United States", countries[0]["name"])
}

func TestGetIndicators(t *testing.T) {
	w, body := do(t, newTestRouter(t), "/api/v2/meta/indicators")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body, 4)
	energy := body["energy_transition"].(map[string]any)
	assert.NotEmpty(t, energy["description"])
	assert.Len(t, energy["indicators"].([]any), 16)
}
