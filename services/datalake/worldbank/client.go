// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package worldbank implements the fetch layer against the World Bank v2
// REST API. One GET per indicator retrieves all countries and all years in
// a single page; a fixed-size worker pool bounds concurrent requests.
//
// # Error Handling
//
// Individual fetch failures (timeout, transport error, non-2xx, malformed
// payload) are isolated per indicator: FetchMany logs them and records an
// empty record set for that indicator. A failed indicator never aborts its
// siblings and never surfaces as an error to the load cycle.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// BaseURL is the World Bank v2 API root.
	BaseURL = "https://api.worldbank.org/v2"

	// DateRange bounds every indicator query.
	DateRange = "1990:2023"

	// PerPage is large enough to retrieve all records in one response
	// (~200 countries x 34 years).
	PerPage = 20000

	// DefaultWorkers caps concurrent outbound requests.
	DefaultWorkers = 12

	// RequestTimeout applies per request; a stuck fetch degrades to an
	// empty record set rather than blocking the load.
	RequestTimeout = 30 * time.Second

	userAgent = "ClimateLake/2.0"
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Record is one provider-native observation: a country, a year, and an
// optional value. Field tags match the World Bank wire format exactly so
// records round-trip through the cache file unchanged.
type Record struct {
	CountryISO3 string      `json:"countryiso3code"`
	Date        string      `json:"date"`
	Value       *float64    `json:"value"`
	Country     CountryName `json:"country"`
}

// CountryName carries the display name nested inside each record.
type CountryName struct {
	Value string `json:"value"`
}

// Client fetches indicator record sets from the World Bank API.
type Client struct {
	baseURL string
	http    HTTPClient
	workers int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (tests point this at httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithWorkers overrides the concurrent request cap.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewClient builds a Client around the given HTTP client. Passing nil uses
// a default client with the standard per-request timeout.
func NewClient(hc HTTPClient, opts ...Option) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: RequestTimeout}
	}
	c := &Client{
		baseURL: BaseURL,
		http:    hc,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves every record for one indicator code.
//
// The response is a two-element JSON envelope; the second element is the
// record list. Anything else is an error.
func (c *Client) Fetch(ctx context.Context, code string) ([]Record, error) {
	url := fmt.Sprintf("%s/country/all/indicator/%s?format=json&per_page=%d&date=%s",
		c.baseURL, code, PerPage, DateRange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call World Bank API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("World Bank API returned status %s", resp.Status)
	}

	var envelope []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode World Bank JSON: %w", err)
	}
	if len(envelope) < 2 {
		return nil, fmt.Errorf("unexpected envelope shape for %s (%d elements)", code, len(envelope))
	}

	var records []Record
	if err := json.Unmarshal(envelope[1], &records); err != nil {
		return nil, fmt.Errorf("failed to decode record list: %w", err)
	}
	return records, nil
}

// FetchMany retrieves all the given indicators concurrently, bounded by the
// worker cap. The input maps indicator short name -> World Bank code; the
// result maps short name -> record set.
//
// Every requested name is present in the result. A failed or timed-out
// fetch yields an empty (non-nil) record set for that name.
func (c *Client) FetchMany(ctx context.Context, indicators map[string]string) map[string][]Record {
	type job struct {
		name string
		code string
	}
	type outcome struct {
		name    string
		records []Record
	}

	jobs := make(chan job, len(indicators))
	results := make(chan outcome, len(indicators))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
				records, err := c.Fetch(reqCtx, j.code)
				cancel()
				if err != nil {
					slog.Error("Indicator fetch failed",
						"worker_id", workerID, "indicator", j.name, "code", j.code, "error", err)
					results <- outcome{name: j.name, records: []Record{}}
					continue
				}
				if len(records) == 0 {
					slog.Warn("Indicator returned no records", "indicator", j.name, "code", j.code)
					results <- outcome{name: j.name, records: []Record{}}
					continue
				}
				slog.Info("Indicator fetched", "indicator", j.name, "code", j.code, "records", len(records))
				results <- outcome{name: j.name, records: records}
			}
		}(i)
	}

	for name, code := range indicators {
		jobs <- job{name: name, code: code}
	}
	close(jobs)

	wg.Wait()
	close(results)

	out := make(map[string][]Record, len(indicators))
	for res := range results {
		out[res.name] = res.records
	}
	return out
}
