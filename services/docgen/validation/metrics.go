// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for validation outcomes.
var meter = otel.Meter("docgen.validation")

var (
	sectionsTotal metric.Int64Counter
	issuesTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		sectionsTotal, err = meter.Int64Counter(
			"docgen_validation_sections_total",
			metric.WithDescription("Validated sections by result tier (observed, inferred, none)"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		issuesTotal, err = meter.Int64Counter(
			"docgen_validation_issues_total",
			metric.WithDescription("Ungrounded sentences found during validation"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordResult counts one validated section and its issues.
func recordResult(result Result) {
	if initMetrics() != nil {
		return
	}
	ctx := context.Background()
	sectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(result.Tier)),
	))
	if n := len(result.Issues); n > 0 {
		issuesTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("section", result.SectionKey),
		))
	}
}
