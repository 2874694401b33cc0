// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for pipeline runs.
var meter = otel.Meter("docgen.orchestrator")

var (
	runsTotal      metric.Int64Counter
	fallbacksTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		runsTotal, err = meter.Int64Counter(
			"docgen_runs_total",
			metric.WithDescription("Pipeline runs by strategy"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		fallbacksTotal, err = meter.Int64Counter(
			"docgen_section_fallbacks_total",
			metric.WithDescription("Sections that fell back to deterministic stubs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRun counts one pipeline run.
func recordRun(ctx context.Context, strategy string, fallbacks int) {
	if initMetrics() != nil {
		return
	}
	runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("clean", fallbacks == 0),
	))
}

// recordFallback counts one fallback substitution.
func recordFallback(ctx context.Context, sectionKey string) {
	if initMetrics() != nil {
		return
	}
	fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("section", sectionKey)))
}
