// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import "math"

// GrowthWindow is the rolling window, in years, used for every derived
// growth table in the system.
const GrowthWindow = 5

// GrowthSuffix names the derived growth table of a base indicator, e.g.
// "co2_emissions" -> "co2_emissions_growth_5y". The suffix is part of the
// public query vocabulary.
const GrowthSuffix = "_growth_5y"

// Growth derives a rolling compound annual growth rate table:
//
//	growth[t] = (value[t] / value[t-window])^(1/window) - 1
//
// A cell is absent unless both window endpoints are present and strictly
// positive. Tables with fewer rows than the window yield an empty table.
func (t *Table) Growth(window int) *Table {
	if t.Empty() || len(t.years) < window {
		return &Table{cols: map[string][]float64{}}
	}

	years := make([]int, len(t.years))
	copy(years, t.years)

	cols := make(map[string][]float64, len(t.cols))
	for iso3, col := range t.cols {
		out := make([]float64, len(col))
		for i := range out {
			out[i] = math.NaN()
		}
		for i := window; i < len(col); i++ {
			end, start := col[i], col[i-window]
			if math.IsNaN(end) || math.IsNaN(start) || end <= 0 || start <= 0 {
				continue
			}
			out[i] = math.Pow(end/start, 1.0/float64(window)) - 1
		}
		cols[iso3] = out
	}

	return &Table{years: years, cols: cols}
}
