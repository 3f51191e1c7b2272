// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dataset holds the in-memory table model for indicator data: a
// dense year x country numeric table per indicator, plus the transform
// from raw World Bank records and the rolling growth-rate derivation.
//
// Tables are built once per load cycle and treated as immutable afterward.
// Absent cells are NaN internally; the public accessors never expose NaN.
package dataset

import (
	"math"
	"sort"
	"strconv"

	"github.com/AleutianAI/ClimateLake/services/datalake/catalog"
	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

// MaxInterpolationGap is the widest run of consecutive missing years the
// transform will fill. Wider gaps stay absent.
const MaxInterpolationGap = 3

// Point is one (year, value) observation of a country series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Table is a year x country numeric table for one indicator. The year
// index is sorted ascending; each country column is a value slice parallel
// to the index with NaN marking absent cells.
type Table struct {
	years []int
	cols  map[string][]float64
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool {
	return t == nil || len(t.years) == 0 || len(t.cols) == 0
}

// Rows returns the number of years in the index.
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.years)
}

// Years returns a copy of the year index.
func (t *Table) Years() []int {
	if t == nil {
		return nil
	}
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

// Countries returns the country codes with a column, sorted.
func (t *Table) Countries() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.cols))
	for iso3 := range t.cols {
		out = append(out, iso3)
	}
	sort.Strings(out)
	return out
}

// Value returns the cell for (year, iso3). ok is false for absent cells
// and unknown keys.
func (t *Table) Value(year int, iso3 string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	col, exists := t.cols[iso3]
	if !exists {
		return 0, false
	}
	for i, y := range t.years {
		if y == year {
			v := col[i]
			if math.IsNaN(v) {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

// Series returns the chronological non-absent observations for a country.
// Unknown countries yield an empty slice.
func (t *Table) Series(iso3 string) []Point {
	if t == nil {
		return nil
	}
	col, exists := t.cols[iso3]
	if !exists {
		return nil
	}
	var out []Point
	for i, y := range t.years {
		if !math.IsNaN(col[i]) {
			out = append(out, Point{Year: y, Value: col[i]})
		}
	}
	return out
}

// Latest returns each country's most recent non-absent value. Countries
// without a single observation are omitted.
func (t *Table) Latest() map[string]float64 {
	if t == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(t.cols))
	for iso3, col := range t.cols {
		for i := len(col) - 1; i >= 0; i-- {
			if !math.IsNaN(col[i]) {
				out[iso3] = col[i]
				break
			}
		}
	}
	return out
}

// FromRecords pivots raw provider records into a Table and captures each
// country's first-seen display name.
//
// Records with an empty or aggregate country code, or without a parseable
// year, are discarded. A country whose records are all null keeps its
// registry name but gets no column. For duplicate (year, country) pairs
// the first non-absent value wins. After the pivot, each country column is linearly
// interpolated across the year index, filling gaps of at most
// MaxInterpolationGap consecutive missing years and never extrapolating
// past the column's first or last observation.
//
// Empty input yields an empty table and empty registry.
func FromRecords(records []worldbank.Record) (*Table, map[string]string) {
	names := make(map[string]string)
	if len(records) == 0 {
		return &Table{cols: map[string][]float64{}}, names
	}

	type cell struct {
		year int
		iso3 string
	}
	values := make(map[cell]float64)
	yearSet := make(map[int]bool)
	countrySet := make(map[string]bool)

	for _, rec := range records {
		iso3 := rec.CountryISO3
		if iso3 == "" || catalog.IsAggregate(iso3) {
			continue
		}
		year, err := strconv.Atoi(rec.Date)
		if err != nil {
			continue
		}

		yearSet[year] = true
		if _, seen := names[iso3]; !seen {
			if rec.Country.Value != "" {
				names[iso3] = rec.Country.Value
			} else {
				names[iso3] = iso3
			}
		}

		if rec.Value == nil {
			continue
		}
		// A column exists only for countries with at least one real
		// observation; all-null countries contribute index years and a
		// registry name but no column.
		countrySet[iso3] = true
		key := cell{year: year, iso3: iso3}
		if _, dup := values[key]; !dup {
			values[key] = *rec.Value
		}
	}

	if len(countrySet) == 0 {
		return &Table{cols: map[string][]float64{}}, names
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	cols := make(map[string][]float64, len(countrySet))
	for iso3 := range countrySet {
		col := make([]float64, len(years))
		for i, y := range years {
			if v, ok := values[cell{year: y, iso3: iso3}]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		interpolate(col, MaxInterpolationGap)
		cols[iso3] = col
	}

	return &Table{years: years, cols: cols}, names
}

// interpolate fills NaN runs between observed values in place. Runs longer
// than maxGap are left absent; leading and trailing NaNs are never filled.
func interpolate(col []float64, maxGap int) {
	prev := -1
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 {
			gap := i - prev - 1
			if gap > 0 && gap <= maxGap {
				step := (col[i] - col[prev]) / float64(i-prev)
				for k := prev + 1; k < i; k++ {
					col[k] = col[prev] + step*float64(k-prev)
				}
			}
		}
		prev = i
	}
}
