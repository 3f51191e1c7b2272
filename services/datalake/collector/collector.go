// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package collector orchestrates the load cycle (cache -> fetch ->
// transform -> growth derivation) and exposes the read-only data access
// facade over the resulting in-memory table set.
//
// # Concurrency
//
// One load cycle runs at a time, serialized by a mutex. The table set is
// rebuilt wholesale and published with an atomic pointer swap, so readers
// either see the previous complete snapshot or the new one, never a
// partially built set. Callers are expected to run Load once at process
// start before serving queries.
package collector

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/ClimateLake/services/datalake/catalog"
	"github.com/AleutianAI/ClimateLake/services/datalake/dataset"
	"github.com/AleutianAI/ClimateLake/services/datalake/observability"
	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

// GrowthSuffix mirrors dataset.GrowthSuffix for callers composing growth
// table names against the facade.
const GrowthSuffix = dataset.GrowthSuffix

// State tracks the load lifecycle.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// Fetcher retrieves raw record sets for a batch of indicators. Failures
// must be isolated per indicator (empty set, never an error).
type Fetcher interface {
	FetchMany(ctx context.Context, indicators map[string]string) map[string][]worldbank.Record
}

// Cache is the disk-backed raw record store. Read returns nil on any kind
// of miss; Write never fails the caller.
type Cache interface {
	Read() map[string][]worldbank.Record
	Write(data map[string][]worldbank.Record)
}

// tableSet is the immutable product of one load cycle.
type tableSet struct {
	tables    map[string]*dataset.Table
	names     map[string]string
	countries []string
}

// Collector owns the table set and the load state machine.
type Collector struct {
	cat     *catalog.Catalog
	fetcher Fetcher
	cache   Cache
	metrics *observability.ETLMetrics

	mu     sync.Mutex
	state  State
	tables atomic.Pointer[tableSet]
}

// New builds a Collector. metrics may be nil.
func New(cat *catalog.Catalog, fetcher Fetcher, cache Cache, metrics *observability.ETLMetrics) *Collector {
	return &Collector{cat: cat, fetcher: fetcher, cache: cache, metrics: metrics}
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load runs one full load cycle. It is idempotent: calling it while
// already loaded is a no-op and performs no network or disk access.
//
// Fetch and cache failures degrade to empty record sets and never fail the
// cycle; the only error returned is context cancellation.
func (c *Collector) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoaded {
		return nil
	}
	c.state = StateLoading
	start := time.Now()

	names := c.cat.Names()
	slog.Info("Data lake load starting",
		"indicators", len(names), "clusters", len(c.cat.Clusters), "date_range", worldbank.DateRange)

	raw := c.gatherRaw(ctx, names)
	if err := ctx.Err(); err != nil {
		c.state = StateUnloaded
		return err
	}

	tables, registry := c.transformAll(ctx, raw)

	// Derive the growth table for every base indicator, present or not.
	for _, name := range names {
		tables[name+GrowthSuffix] = tables[name].Growth(dataset.GrowthWindow)
	}

	countrySet := make(map[string]bool)
	loaded := 0
	for _, name := range names {
		if !tables[name].Empty() {
			loaded++
		}
		for _, iso3 := range tables[name].Countries() {
			countrySet[iso3] = true
		}
	}
	countries := make([]string, 0, len(countrySet))
	for iso3 := range countrySet {
		countries = append(countries, iso3)
	}
	sort.Strings(countries)

	c.tables.Store(&tableSet{tables: tables, names: registry, countries: countries})
	c.state = StateLoaded

	if c.metrics != nil {
		c.metrics.LoadDurationSeconds.Observe(time.Since(start).Seconds())
		c.metrics.TablesLoaded.Set(float64(len(tables)))
	}
	slog.Info("Data lake ready",
		"indicators_loaded", loaded, "indicators_total", len(names),
		"countries", len(countries), "duration", time.Since(start))
	return nil
}

// gatherRaw resolves every indicator's raw record set, cache first, then
// the network for whatever the cache could not supply. After any network
// fetch the complete merged map is written back so the next load can hit
// cache fully.
func (c *Collector) gatherRaw(ctx context.Context, names []string) map[string][]worldbank.Record {
	raw := make(map[string][]worldbank.Record, len(names))

	cached := c.cache.Read()
	if cached != nil {
		missing := make(map[string]string)
		for _, name := range names {
			if records, ok := cached[name]; ok {
				raw[name] = records
				c.count("cache", records)
			} else if code, ok := c.cat.Code(name); ok {
				missing[name] = code
			}
		}
		if len(missing) == 0 {
			slog.Info("Full cache hit", "indicators", len(raw))
			return raw
		}
		slog.Info("Partial cache hit", "cached", len(raw), "fetching", len(missing))
		for name, records := range c.fetcher.FetchMany(ctx, missing) {
			raw[name] = records
			c.count("fetch", records)
		}
		c.writeBack(raw)
		return raw
	}

	// Cold start: fetch everything, cluster by cluster. The grouping is
	// for observability only; table contents do not depend on it.
	for _, cl := range c.cat.Clusters {
		batch := make(map[string]string, len(cl.Indicators))
		for _, ind := range cl.Indicators {
			batch[ind.Name] = ind.Code
		}
		slog.Info("Fetching cluster", "cluster", cl.Name, "indicators", len(batch))
		for name, records := range c.fetcher.FetchMany(ctx, batch) {
			raw[name] = records
			c.count("fetch", records)
		}
	}
	c.writeBack(raw)
	return raw
}

func (c *Collector) writeBack(raw map[string][]worldbank.Record) {
	c.cache.Write(raw)
	if c.metrics != nil {
		c.metrics.CacheWrites.Inc()
	}
}

func (c *Collector) count(source string, records []worldbank.Record) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if len(records) == 0 {
		status = "empty"
		if source == "fetch" {
			c.metrics.FetchFailures.Inc()
		}
	}
	c.metrics.IndicatorsLoaded.WithLabelValues(source, status).Inc()
}

// transformAll pivots every raw record set into a table concurrently and
// merges the per-indicator name registries (first name seen wins).
func (c *Collector) transformAll(ctx context.Context, raw map[string][]worldbank.Record) (map[string]*dataset.Table, map[string]string) {
	tables := make(map[string]*dataset.Table, len(raw)*2)
	registry := make(map[string]string)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for name, records := range raw {
		name, records := name, records
		g.Go(func() error {
			table, names := dataset.FromRecords(records)
			mu.Lock()
			defer mu.Unlock()
			tables[name] = table
			for iso3, display := range names {
				if _, seen := registry[iso3]; !seen {
					registry[iso3] = display
				}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	// Indicators the cache and fetch both failed to produce still need a
	// table so growth derivation and the facade see a uniform set.
	for _, name := range c.cat.Names() {
		if _, ok := tables[name]; !ok {
			tables[name], _ = dataset.FromRecords(nil)
		}
	}
	return tables, registry
}

// Invalidate clears all in-memory tables and the registry and resets the
// state machine, forcing the next Load to rebuild. The disk cache is left
// untouched and may still satisfy the rebuild.
func (c *Collector) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables.Store(nil)
	c.state = StateUnloaded
	if c.metrics != nil {
		c.metrics.TablesLoaded.Set(0)
	}
	slog.Info("Data lake invalidated")
}

// =============================================================================
// Data access facade
// =============================================================================

// CountryMeta is one entry of the country listing.
type CountryMeta struct {
	ISO3 string `json:"iso3"`
	Name string `json:"name"`
}

// ClusterMeta is one entry of the cluster-grouped indicator listing.
type ClusterMeta struct {
	Description string   `json:"description"`
	Indicators  []string `json:"indicators"`
}

// IndicatorProfile is one indicator inside a country profile.
type IndicatorProfile struct {
	Current  *float64           `json:"current"`
	History  map[string]float64 `json:"history"`
	Growth5Y *float64           `json:"growth_5y"`
}

// Profile is the full per-country view across every cluster.
type Profile struct {
	ISO3 string                                 `json:"iso3"`
	Name string                                 `json:"name"`
	Data map[string]map[string]IndicatorProfile `json:"data"`
}

func (c *Collector) set() *tableSet {
	return c.tables.Load()
}

func (c *Collector) table(name string) *dataset.Table {
	ts := c.set()
	if ts == nil {
		return nil
	}
	return ts.tables[name]
}

// Series returns the chronological non-absent observations of one
// indicator for one country. Unknown identifiers yield an empty slice.
func (c *Collector) Series(iso3, indicator string) []dataset.Point {
	return c.table(indicator).Series(iso3)
}

// Latest returns each country's most recent non-absent value for one
// indicator. Unknown indicators yield an empty map.
func (c *Collector) Latest(indicator string) map[string]float64 {
	return c.table(indicator).Latest()
}

// CountryName resolves a display name, echoing the code itself when the
// registry has never seen it.
func (c *Collector) CountryName(iso3 string) string {
	if ts := c.set(); ts != nil {
		if name, ok := ts.names[iso3]; ok {
			return name
		}
	}
	return iso3
}

// AllCountries returns the sorted union of country codes across every
// indicator table.
func (c *Collector) AllCountries() []string {
	ts := c.set()
	if ts == nil {
		return nil
	}
	out := make([]string, len(ts.countries))
	copy(out, ts.countries)
	return out
}

// IndicatorNames returns every base indicator name in catalog order.
func (c *Collector) IndicatorNames() []string {
	return c.cat.Names()
}

// CountriesMeta lists every country with data, with display names.
func (c *Collector) CountriesMeta() []CountryMeta {
	countries := c.AllCountries()
	out := make([]CountryMeta, 0, len(countries))
	for _, iso3 := range countries {
		out = append(out, CountryMeta{ISO3: iso3, Name: c.CountryName(iso3)})
	}
	return out
}

// IndicatorsMeta returns the cluster -> indicator catalog with
// descriptions.
func (c *Collector) IndicatorsMeta() map[string]ClusterMeta {
	out := make(map[string]ClusterMeta, len(c.cat.Clusters))
	for _, cl := range c.cat.Clusters {
		names := make([]string, 0, len(cl.Indicators))
		for _, ind := range cl.Indicators {
			names = append(names, ind.Name)
		}
		out[cl.Name] = ClusterMeta{Description: cl.Description, Indicators: names}
	}
	return out
}

// CountryProfile builds the nested cluster -> indicator ->
// {current, history, growth_5y} view for one country. Unknown countries
// yield a profile with empty histories.
func (c *Collector) CountryProfile(iso3 string) Profile {
	data := make(map[string]map[string]IndicatorProfile, len(c.cat.Clusters))
	for _, cl := range c.cat.Clusters {
		indicators := make(map[string]IndicatorProfile, len(cl.Indicators))
		for _, ind := range cl.Indicators {
			series := c.Series(iso3, ind.Name)

			var current *float64
			history := make(map[string]float64, len(series))
			for _, p := range series {
				history[strconv.Itoa(p.Year)] = dataset.Round(p.Value, 4)
			}
			if n := len(series); n > 0 {
				v := dataset.Round(series[n-1].Value, 4)
				current = &v
			}

			var growth *float64
			if gs := c.Series(iso3, ind.Name+GrowthSuffix); len(gs) > 0 {
				v := dataset.Round(gs[len(gs)-1].Value, 6)
				growth = &v
			}

			indicators[ind.Name] = IndicatorProfile{
				Current:  current,
				History:  history,
				Growth5Y: growth,
			}
		}
		data[cl.Name] = indicators
	}
	return Profile{ISO3: iso3, Name: c.CountryName(iso3), Data: data}
}

// Snapshot builds the flat one-row-per-country latest-value table used for
// bulk and legacy consumption. Row keys are "iso3", "country", and every
// indicator name (nil when the country has no observation).
func (c *Collector) Snapshot() []map[string]any {
	countries := c.AllCountries()
	names := c.cat.Names()

	latest := make(map[string]map[string]float64, len(names))
	for _, name := range names {
		latest[name] = c.Latest(name)
	}

	rows := make([]map[string]any, 0, len(countries))
	for _, iso3 := range countries {
		row := make(map[string]any, len(names)+2)
		row["iso3"] = iso3
		row["country"] = c.CountryName(iso3)
		for _, name := range names {
			if v, ok := latest[name][iso3]; ok {
				row[name] = v
			} else {
				row[name] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ClusterData builds the deep nested iso3 -> year -> indicator map for one
// cluster. Countries without a single observation in the cluster are
// omitted; unknown clusters yield an empty map.
func (c *Collector) ClusterData(cluster string) map[string]map[string]map[string]float64 {
	cl, ok := c.cat.Cluster(cluster)
	if !ok {
		return map[string]map[string]map[string]float64{}
	}

	out := make(map[string]map[string]map[string]float64)
	for _, iso3 := range c.AllCountries() {
		countryData := make(map[string]map[string]float64)
		for _, ind := range cl.Indicators {
			for _, p := range c.Series(iso3, ind.Name) {
				year := strconv.Itoa(p.Year)
				if countryData[year] == nil {
					countryData[year] = make(map[string]float64)
				}
				countryData[year][ind.Name] = dataset.Round(p.Value, 4)
			}
		}
		if len(countryData) > 0 {
			out[iso3] = countryData
		}
	}
	return out
}
