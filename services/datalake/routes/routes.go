// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/ClimateLake/services/datalake/collector"
	"github.com/AleutianAI/ClimateLake/services/datalake/config"
	"github.com/AleutianAI/ClimateLake/services/datalake/handlers"
)

// SetupRoutes registers every endpoint of the data lake service.
//
// Endpoints:
//
//	GET /health - liveness and load state
//	GET /metrics - Prometheus metrics
//	GET /api/v1/data/master - flat latest-value snapshot
//	GET /api/v2/country/:iso3 - nested country profile
//	GET /api/v2/country/:iso3/report - time series + trend report
//	GET /api/v2/cluster/:cluster - deep per-cluster data
//	GET /api/v2/analytics/correlation/:x/:y - cross-country Pearson r
//	GET /api/v2/analytics/green-growth - decoupling ranking
//	GET /api/v2/analytics/forecast/:iso3/:indicator - OLS projection
//	GET /api/v2/meta/countries - country listing
//	GET /api/v2/meta/indicators - indicator catalog by cluster
func SetupRoutes(router *gin.Engine, col *collector.Collector, cfg config.Config) {
	router.Use(corsMiddleware(cfg.AllowedOrigin))

	router.GET("/health", handlers.HealthCheck(col))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/data/master", handlers.GetMasterData(col))
	}

	v2 := router.Group("/api/v2")
	{
		country := v2.Group("/country")
		{
			country.GET("/:iso3", handlers.GetCountryProfile(col))
			country.GET("/:iso3/report", handlers.GetCountryReport(col, cfg.TargetYear))
		}

		v2.GET("/cluster/:cluster", handlers.GetClusterData(col))

		analytics := v2.Group("/analytics")
		{
			analytics.GET("/correlation/:x/:y", handlers.GetCorrelation(col))
			analytics.GET("/green-growth", handlers.GetGreenGrowth(col))
			analytics.GET("/forecast/:iso3/:indicator", handlers.GetForecast(col, cfg.TargetYear))
		}

		meta := v2.Group("/meta")
		{
			meta.GET("/countries", handlers.GetCountries(col))
			meta.GET("/indicators", handlers.GetIndicators(col))
		}
	}
}

// corsMiddleware allows cross-origin reads from the configured origin.
// The API is read-only, so only GET and the preflight verb are accepted.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
