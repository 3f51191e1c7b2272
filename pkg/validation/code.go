// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for user-supplied
// path parameters.
//
// Country codes and indicator names arrive as URL segments and end up as
// map lookup keys and log fields. Validating them at the handler boundary
// keeps junk identifiers out of logs and gives callers a clean 400 instead
// of a silent empty result for malformed input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// iso3Pattern matches ISO 3166-1 alpha-3 country codes: exactly three
// uppercase letters.
var iso3Pattern = regexp.MustCompile(`^[A-Z]{3}$`)

// indicatorPattern matches indicator identifiers: lowercase snake_case,
// digits allowed after the first character. Covers both base names
// (gdp_per_capita) and derived growth names (gdp_per_capita_growth_5y).
// Max length 64 characters.
var indicatorPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidateISO3 validates an ISO 3166-1 alpha-3 country code.
//
// Returns an error if the code is not exactly three uppercase letters.
func ValidateISO3(code string) error {
	if code == "" {
		return fmt.Errorf("country code cannot be empty")
	}
	if !iso3Pattern.MatchString(code) {
		return fmt.Errorf("invalid country code: %q (must be 3 uppercase letters, e.g. USA)", code)
	}
	return nil
}

// SanitizeISO3 normalizes and validates a country code.
// Returns the uppercase code if valid, or an error if invalid.
//
// Use this at the handler boundary so "usa" and " USA " both resolve:
//
//	iso3, err := validation.SanitizeISO3(ctx.Param("iso3"))
//	if err != nil {
//	    ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func SanitizeISO3(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := ValidateISO3(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateIndicator validates an indicator identifier.
//
// Returns an error if the name is not lowercase snake_case.
func ValidateIndicator(name string) error {
	if name == "" {
		return fmt.Errorf("indicator name cannot be empty")
	}
	if !indicatorPattern.MatchString(name) {
		return fmt.Errorf("invalid indicator name: %q (must be lowercase snake_case)", name)
	}
	return nil
}

// SanitizeIndicator normalizes and validates an indicator identifier.
// Returns the lowercase name if valid, or an error if invalid.
func SanitizeIndicator(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := ValidateIndicator(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
