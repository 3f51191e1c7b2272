// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package collector

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ClimateLake/services/datalake/catalog"
	"github.com/AleutianAI/ClimateLake/services/datalake/observability"
	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

// --- Fakes ---

type fakeFetcher struct {
	mu      sync.Mutex
	data    map[string][]worldbank.Record
	fetched []string
}

func (f *fakeFetcher) FetchMany(_ context.Context, indicators map[string]string) map[string][]worldbank.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]worldbank.Record, len(indicators))
	for name := range indicators {
		f.fetched = append(f.fetched, name)
		if records, ok := f.data[name]; ok {
			out[name] = records
		} else {
			out[name] = []worldbank.Record{}
		}
	}
	return out
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fakeCache struct {
	stored map[string][]worldbank.Record
	reads  int
	writes int
}

func (f *fakeCache) Read() map[string][]worldbank.Record {
	f.reads++
	return f.stored
}

func (f *fakeCache) Write(data map[string][]worldbank.Record) {
	f.writes++
	f.stored = data
}

// --- Fixtures ---

func floatPtr(v float64) *float64 { return &v }

// seriesRecords builds a dense annual record set for one country.
func seriesRecords(iso3, name string, startYear int, values ...float64) []worldbank.Record {
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

func testData() map[string][]worldbank.Record {
	return map[string][]worldbank.Record{
		"gdp_per_capita": seriesRecords("USA", "United States", 2000,
			100, 110, 120, 130, 140, 150),
		"co2_emissions": seriesRecords("USA", "United States", 2000,
			10, 9, 8, 7, 6, 5),
	}
}

func newLoaded(t *testing.T) (*Collector, *fakeFetcher, *fakeCache) {
	t.Helper()
	fetcher := &fakeFetcher{data: testData()}
	cache := &fakeCache{}
	c := New(catalog.Default(), fetcher, cache, nil)
	require.NoError(t, c.Load(context.Background()))
	return c, fetcher, cache
}

// --- Load orchestration ---

func TestLoad_ColdStartFetchesEverythingAndWritesCache(t *testing.T) {
	c, fetcher, cache := newLoaded(t)

	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, len(catalog.Default().Names()), fetcher.fetchCount())
	assert.Equal(t, 1, cache.writes)
	assert.Len(t, cache.stored, len(catalog.Default().Names()))

	series := c.Series("USA", "gdp_per_capita")
	require.Len(t, series, 6)
	assert.InDelta(t, 100, series[0].Value, 1e-9)
}

func TestLoad_Idempotent(t *testing.T) {
	c, fetcher, cache := newLoaded(t)
	before := fetcher.fetchCount()

	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, before, fetcher.fetchCount(), "second load must not fetch")
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 1, cache.reads)
	assert.Len(t, c.Series("USA", "gdp_per_capita"), 6)
}

func TestLoad_FullCacheHitSkipsNetworkAndWrite(t *testing.T) {
	cached := make(map[string][]worldbank.Record)
	for _, name := range catalog.Default().Names() {
		cached[name] = []worldbank.Record{}
	}
	for name, records := range testData() {
		cached[name] = records
	}

	fetcher := &fakeFetcher{}
	cache := &fakeCache{stored: cached}
	c := New(catalog.Default(), fetcher, cache, nil)
	require.NoError(t, c.Load(context.Background()))

	assert.Zero(t, fetcher.fetchCount())
	assert.Zero(t, cache.writes)
	assert.Len(t, c.Series("USA", "co2_emissions"), 6)
}

func TestLoad_PartialCacheHitFetchesMissingAndMerges(t *testing.T) {
	cached := make(map[string][]worldbank.Record)
	for _, name := range catalog.Default().Names() {
		if name != "gdp_per_capita" {
			cached[name] = []worldbank.Record{}
		}
	}
	cached["co2_emissions"] = testData()["co2_emissions"]

	fetcher := &fakeFetcher{data: testData()}
	cache := &fakeCache{stored: cached}
	c := New(catalog.Default(), fetcher, cache, nil)
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, 1, fetcher.fetchCount())
	assert.Equal(t, []string{"gdp_per_capita"}, fetcher.fetched)
	// Write-back merges cache hits and the fresh fetch.
	assert.Equal(t, 1, cache.writes)
	assert.Len(t, cache.stored, len(catalog.Default().Names()))
	assert.Len(t, cache.stored["co2_emissions"], 6)
	assert.Len(t, cache.stored["gdp_per_capita"], 6)
}

func TestInvalidate_ForcesRebuildFromCache(t *testing.T) {
	c, fetcher, _ := newLoaded(t)
	before := fetcher.fetchCount()

	c.Invalidate()
	assert.Equal(t, StateUnloaded, c.State())
	assert.Empty(t, c.Series("USA", "gdp_per_capita"))
	assert.Empty(t, c.AllCountries())

	// Rebuild is satisfied by the cache written during the first load.
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, before, fetcher.fetchCount())
	assert.Len(t, c.Series("USA", "gdp_per_capita"), 6)
}

func TestLoad_AllNullCountryExcludedFromUnion(t *testing.T) {
	data := testData()
	data["gdp_per_capita"] = append(data["gdp_per_capita"],
		worldbank.Record{CountryISO3: "ABW", Date: "2000", Value: nil,
			Country: worldbank.CountryName{Value: "Aruba"}})

	c := New(catalog.Default(), &fakeFetcher{data: data}, &fakeCache{}, nil)
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, []string{"USA"}, c.AllCountries())
	require.Len(t, c.Snapshot(), 1)
	assert.NotContains(t, c.ClusterData("economic_risk"), "ABW")
}

func TestLoad_RecordsMetrics(t *testing.T) {
	m := observability.NewETLMetrics(prometheus.NewRegistry())
	c := New(catalog.Default(), &fakeFetcher{data: testData()}, &fakeCache{}, m)
	require.NoError(t, c.Load(context.Background()))

	total := len(catalog.Default().Names())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.IndicatorsLoaded.WithLabelValues("fetch", "ok")))
	assert.Equal(t, float64(total-2), testutil.ToFloat64(m.IndicatorsLoaded.WithLabelValues("fetch", "empty")))
	assert.Equal(t, float64(total-2), testutil.ToFloat64(m.FetchFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheWrites))
	// One base table per indicator plus its derived growth table.
	assert.Equal(t, float64(2*total), testutil.ToFloat64(m.TablesLoaded))

	// A rebuild served from cache counts under the cache source and
	// does not touch the fetch-failure counter.
	c.Invalidate()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TablesLoaded))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IndicatorsLoaded.WithLabelValues("cache", "ok")))
	assert.Equal(t, float64(total-2), testutil.ToFloat64(m.IndicatorsLoaded.WithLabelValues("cache", "empty")))
	assert.Equal(t, float64(total-2), testutil.ToFloat64(m.FetchFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheWrites))
}

// --- Facade ---

func TestFacade_SeriesAndLatest(t *testing.T) {
	c, _, _ := newLoaded(t)

	latest := c.Latest("gdp_per_capita")
	assert.InDelta(t, 150, latest["USA"], 1e-9)

	assert.Empty(t, c.Series("USA", "no_such_indicator"))
	assert.Empty(t, c.Series("ZZZ", "gdp_per_capita"))
	assert.Empty(t, c.Latest("no_such_indicator"))
}

func TestFacade_GrowthTablesDerived(t *testing.T) {
	c, _, _ := newLoaded(t)

	growth := c.Series("USA", "gdp_per_capita"+GrowthSuffix)
	require.Len(t, growth, 1)
	assert.Equal(t, 2005, growth[0].Year)
	assert.InDelta(t, 0.0845, growth[0].Value, 1e-3) // (150/100)^(1/5)-1
}

func TestFacade_CountryNameFallback(t *testing.T) {
	c, _, _ := newLoaded(t)

	assert.Equal(t, "United States", c.CountryName("USA"))
	assert.Equal(t, "XYZ", c.CountryName("XYZ"))
}

func TestFacade_CountryProfile(t *testing.T) {
	c, _, _ := newLoaded(t)

	profile := c.CountryProfile("USA")
	assert.Equal(t, "USA", profile.ISO3)
	assert.Equal(t, "United States", profile.Name)
	require.Len(t, profile.Data, 4)

	econ := profile.Data["economic_risk"]
	gdp := econ["gdp_per_capita"]
	require.NotNil(t, gdp.Current)
	assert.InDelta(t, 150, *gdp.Current, 1e-9)
	assert.Len(t, gdp.History, 6)
	require.NotNil(t, gdp.Growth5Y)

	// Indicator without data carries empty history and nil current.
	inflation := econ["inflation"]
	assert.Nil(t, inflation.Current)
	assert.Empty(t, inflation.History)
}

func TestFacade_Snapshot(t *testing.T) {
	c, _, _ := newLoaded(t)

	rows := c.Snapshot()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "USA", row["iso3"])
	assert.Equal(t, "United States", row["country"])
	assert.InDelta(t, 150.0, row["gdp_per_capita"].(float64), 1e-9)
	assert.Nil(t, row["inflation"])
}

func TestFacade_ClusterData(t *testing.T) {
	c, _, _ := newLoaded(t)

	data := c.ClusterData("energy_transition")
	require.Contains(t, data, "USA")
	assert.InDelta(t, 10, data["USA"]["2000"]["co2_emissions"], 1e-9)

	assert.Empty(t, c.ClusterData("no_such_cluster"))
}

func TestFacade_Meta(t *testing.T) {
	c, _, _ := newLoaded(t)

	countries := c.CountriesMeta()
	require.Len(t, countries, 1)
	assert.Equal(t, CountryMeta{ISO3: "USA", Name: "United States"}, countries[0])

	meta := c.IndicatorsMeta()
	require.Len(t, meta, 4)
	assert.NotEmpty(t, meta["urban_health"].Description)
	assert.Len(t, meta["energy_transition"].Indicators, 16)
}

func TestFacade_UnloadedReturnsEmpties(t *testing.T) {
	c := New(catalog.Default(), &fakeFetcher{}, &fakeCache{}, nil)

	assert.Empty(t, c.Series("USA", "gdp_per_capita"))
	assert.Empty(t, c.Latest("gdp_per_capita"))
	assert.Empty(t, c.AllCountries())
	assert.Empty(t, c.Snapshot())
	assert.Equal(t, "USA", c.CountryName("USA"))
}
