// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cachestore persists raw World Bank record sets to a single JSON
// file so restarts within the freshness window skip the network entirely.
//
// File format (fixed external contract):
//
//	{"_meta":{"timestamp":<epoch seconds>}, "<indicator_name>":[<records>], ...}
//
// A missing, corrupt, or stale file is a cache miss. Read and Write never
// return errors to the caller: cache trouble is logged and the load cycle
// proceeds as if the cache did not exist.
package cachestore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/ClimateLake/services/datalake/worldbank"
)

// DefaultMaxAge is the freshness window when none is configured.
const DefaultMaxAge = 24 * time.Hour

const metaKey = "_meta"

type meta struct {
	Timestamp float64 `json:"timestamp"`
}

// Store is a disk-backed cache of raw fetch results with one freshness
// timestamp covering the whole entry.
type Store struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// New builds a Store writing to path. maxAge <= 0 selects DefaultMaxAge.
func New(path string, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{path: path, maxAge: maxAge, now: time.Now}
}

// Read returns the cached record map, or nil if the file is missing,
// unparseable, or older than the freshness window.
func (s *Store) Read() map[string][]worldbank.Record {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Cache read error", "path", s.path, "error", err)
		}
		return nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("Cache parse error, treating as miss", "path", s.path, "error", err)
		return nil
	}

	var m meta
	if rawMeta, ok := entries[metaKey]; ok {
		if err := json.Unmarshal(rawMeta, &m); err != nil {
			slog.Warn("Cache meta parse error, treating as miss", "path", s.path, "error", err)
			return nil
		}
	}

	age := s.now().Sub(time.Unix(int64(m.Timestamp), 0))
	if age > s.maxAge {
		slog.Info("Cache expired, will re-fetch", "path", s.path, "age_hours", age.Hours())
		return nil
	}

	out := make(map[string][]worldbank.Record, len(entries))
	for name, rawRecords := range entries {
		if name == metaKey {
			continue
		}
		var records []worldbank.Record
		if err := json.Unmarshal(rawRecords, &records); err != nil {
			slog.Warn("Cache entry parse error, treating as miss",
				"path", s.path, "indicator", name, "error", err)
			return nil
		}
		out[name] = records
	}

	slog.Info("Using cached data", "path", s.path,
		"age_hours", age.Hours(), "indicators", len(out))
	return out
}

// Write overwrites the whole cache file with the given record map and the
// current timestamp. Partial writes are not supported: callers assemble
// everything they intend to persist, then write once.
func (s *Store) Write(data map[string][]worldbank.Record) {
	payload := make(map[string]any, len(data)+1)
	payload[metaKey] = meta{Timestamp: float64(s.now().Unix())}
	for name, records := range data {
		payload[name] = records
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Cache encode error", "path", s.path, "error", err)
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("Cache dir create error", "path", s.path, "error", err)
			return
		}
	}
	if err := os.WriteFile(s.path, buf, 0o644); err != nil {
		slog.Warn("Cache write error", "path", s.path, "error", err)
		return
	}
	slog.Info("Cache saved", "path", s.path, "bytes", len(buf), "indicators", len(data))
}
