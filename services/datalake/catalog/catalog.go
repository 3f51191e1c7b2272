// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog defines the static indicator catalog for the ClimateLake
// data service: four policy clusters, each mapping short indicator names to
// World Bank indicator codes, plus the denylist of aggregate/region codes
// that must never appear as countries.
//
// The catalog is immutable and constructed once at init time. Every other
// component receives it by reference; it is the single source of truth for
// the indicator -> cluster relationship.
package catalog

import "sort"

// Indicator pairs a short name with its World Bank indicator code.
type Indicator struct {
	Name string
	Code string
}

// Cluster is a thematic grouping of related indicators.
//
// Indicators preserve declaration order so that cluster listings and
// fetch logging are stable across runs.
type Cluster struct {
	Name        string
	Description string
	Indicators  []Indicator
}

// Catalog is the full cluster set with derived lookup indexes.
type Catalog struct {
	Clusters []Cluster

	codeByName    map[string]string
	clusterByName map[string]string
	names         []string
}

// clusters below mirror the production indicator set: 57 indicators across
// four policy clusters, spanning 1990-2023.
var clusters = []Cluster{
	{
		Name:        "energy_transition",
		Description: "Is this country actually decarbonizing, or just greenwashing?",
		Indicators: []Indicator{
			{"co2_emissions", "EN.GHG.CO2.PC.CE.AR5"},
			{"renewable_energy", "EG.FEC.RNEW.ZS"},
			{"fossil_fuel_energy_pct", "EG.USE.COMM.FO.ZS"},
			{"access_electricity", "EG.ELC.ACCS.ZS"},
			{"electric_power_kwh", "EG.USE.ELEC.KH.PC"},
			{"energy_use_per_capita", "EG.USE.PCAP.KG.OE"},
			{"alt_nuclear_energy_pct", "EG.USE.COMM.CL.ZS"},
			{"co2_from_transport_pct", "EN.CO2.TRAN.ZS"},
			{"co2_from_manufacturing_pct", "EN.CO2.MANF.ZS"},
			{"co2_from_electricity_pct", "EN.CO2.ETOT.ZS"},
			{"energy_intensity", "EG.EGY.PRIM.PP.KD"},
			{"elec_from_coal_pct", "EG.ELC.COAL.ZS"},
			{"elec_from_gas_pct", "EG.ELC.NGAS.ZS"},
			{"elec_from_oil_pct", "EG.ELC.PETR.ZS"},
			{"elec_from_hydro_pct", "EG.ELC.HYRO.ZS"},
			{"elec_from_nuclear_pct", "EG.ELC.NUCL.ZS"},
		},
	},
	{
		Name:        "agricultural_resilience",
		Description: "Will food security collapse under +2°C warming?",
		Indicators: []Indicator{
			{"cereal_yield", "AG.YLD.CREL.KG"},
			{"agricultural_land_pct", "AG.LND.AGRI.ZS"},
			{"arable_land_pct", "AG.LND.ARBL.ZS"},
			{"fertilizer_consumption", "AG.CON.FERT.ZS"},
			{"food_production_index", "AG.PRD.FOOD.XD"},
			{"crop_production_index", "AG.PRD.CROP.XD"},
			{"livestock_production_index", "AG.PRD.LVSK.XD"},
			{"methane_agriculture_pct", "EN.ATM.METH.AG.ZS"},
			{"n2o_agriculture_pct", "EN.ATM.NOXE.AG.ZS"},
			{"freshwater_withdrawal_agri", "ER.H2O.FWAG.ZS"},
			{"freshwater_per_capita", "ER.H2O.INTR.PC"},
			{"agriculture_value_added_pct", "NV.AGR.TOTL.ZS"},
			{"employment_agriculture_pct", "SL.AGR.EMPL.ZS"},
			{"forest_area_pct", "AG.LND.FRST.ZS"},
		},
	},
	{
		Name:        "urban_health",
		Description: "Are cities becoming death traps due to pollution and heat?",
		Indicators: []Indicator{
			{"pm25_exposure", "EN.ATM.PM25.MC.M3"},
			{"pm25_pop_exposed_pct", "EN.ATM.PM25.MC.ZS"},
			{"urban_population_pct", "SP.URB.TOTL.IN.ZS"},
			{"urban_population_growth", "SP.URB.GROW"},
			{"sanitation_safe_pct", "SH.STA.SMSS.ZS"},
			{"water_safe_pct", "SH.H2O.SMDW.ZS"},
			{"sanitation_basic_pct", "SH.STA.BASS.ZS"},
			{"water_basic_pct", "SH.H2O.BASW.ZS"},
			{"mortality_under5", "SH.DYN.MORT"},
			{"life_expectancy", "SP.DYN.LE00.IN"},
			{"health_expenditure_pct_gdp", "SH.XPD.CHEX.GD.ZS"},
			{"population_density", "EN.POP.DNST"},
			{"population_total", "SP.POP.TOTL"},
		},
	},
	{
		Name:        "economic_risk",
		Description: "Is the economy too dependent on extracting resources?",
		Indicators: []Indicator{
			{"gdp_per_capita", "NY.GDP.PCAP.CD"},
			{"gdp_growth", "NY.GDP.MKTP.KD.ZG"},
			{"inflation", "FP.CPI.TOTL.ZG"},
			{"fdi_net_inflows_pct", "BX.KLT.DINV.WD.GD.ZS"},
			{"natural_resource_rents_pct", "NY.GDP.TOTL.RT.ZS"},
			{"oil_rents_pct", "NY.GDP.PETR.RT.ZS"},
			{"coal_rents_pct", "NY.GDP.COAL.RT.ZS"},
			{"mineral_rents_pct", "NY.GDP.MINR.RT.ZS"},
			{"gas_rents_pct", "NY.GDP.NGAS.RT.ZS"},
			{"forest_rents_pct", "NY.GDP.FRST.RT.ZS"},
			{"trade_pct_gdp", "NE.TRD.GNFS.ZS"},
			{"external_debt_pct_gni", "DT.DOD.DECT.GN.ZS"},
			{"gross_capital_formation_pct", "NE.GDI.TOTL.ZS"},
			{"current_account_balance_pct", "BN.CAB.XOKA.GD.ZS"},
		},
	},
}

// aggregateCodes lists World Bank aggregate / region / income-group codes.
// These are not real countries and are filtered out of every table.
var aggregateCodes = map[string]bool{
	"WLD": true, "EAS": true, "ECS": true, "LCN": true, "MEA": true,
	"NAC": true, "SAS": true, "SSF": true, "EAP": true, "ECA": true,
	"LAC": true, "MNA": true, "SSA": true, "HIC": true, "LIC": true,
	"LMC": true, "LMY": true, "MIC": true, "UMC": true, "ARB": true,
	"CEB": true, "CSS": true, "EAR": true, "EMU": true, "FCS": true,
	"HPC": true, "IBD": true, "IBT": true, "IDA": true, "IDB": true,
	"IDX": true, "INX": true, "LDC": true, "LTE": true, "OED": true,
	"OSS": true, "PRE": true, "PSS": true, "PST": true, "SST": true,
	"TEA": true, "TEC": true, "TLA": true, "TMN": true, "TSA": true,
	"TSS": true, "AFE": true, "AFW": true,
}

// Default returns the production catalog.
//
// The returned value shares the package-level cluster definitions; callers
// must treat it as read-only.
func Default() *Catalog {
	c := &Catalog{
		Clusters:      clusters,
		codeByName:    make(map[string]string),
		clusterByName: make(map[string]string),
	}
	for _, cl := range clusters {
		for _, ind := range cl.Indicators {
			c.codeByName[ind.Name] = ind.Code
			c.clusterByName[ind.Name] = cl.Name
			c.names = append(c.names, ind.Name)
		}
	}
	return c
}

// Code returns the World Bank code for an indicator name.
func (c *Catalog) Code(name string) (string, bool) {
	code, ok := c.codeByName[name]
	return code, ok
}

// ClusterOf returns the cluster an indicator belongs to.
func (c *Catalog) ClusterOf(name string) (string, bool) {
	cl, ok := c.clusterByName[name]
	return cl, ok
}

// Names returns every indicator name in cluster declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether name is a known indicator.
func (c *Catalog) Has(name string) bool {
	_, ok := c.codeByName[name]
	return ok
}

// Cluster returns the cluster definition by name.
func (c *Catalog) Cluster(name string) (Cluster, bool) {
	for _, cl := range c.Clusters {
		if cl.Name == name {
			return cl, true
		}
	}
	return Cluster{}, false
}

// ClusterNames returns the cluster names in declaration order.
func (c *Catalog) ClusterNames() []string {
	out := make([]string, 0, len(c.Clusters))
	for _, cl := range c.Clusters {
		out = append(out, cl.Name)
	}
	return out
}

// IsAggregate reports whether iso3 is a World Bank aggregate code rather
// than a real country.
func IsAggregate(iso3 string) bool {
	return aggregateCodes[iso3]
}

// AggregateCodes returns the denylist, sorted, for diagnostics.
func AggregateCodes() []string {
	out := make([]string, 0, len(aggregateCodes))
	for code := range aggregateCodes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
