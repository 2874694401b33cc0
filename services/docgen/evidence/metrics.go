// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for evidence store operations.
var meter = otel.Meter("docgen.evidence")

var (
	ingestsTotal  metric.Int64Counter
	rebuildsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		ingestsTotal, err = meter.Int64Counter(
			"docgen_evidence_ingests_total",
			metric.WithDescription("Ingest operations by outcome (indexed, skipped, invalidated)"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		rebuildsTotal, err = meter.Int64Counter(
			"docgen_evidence_rebuilds_total",
			metric.WithDescription("Background index rebuilds by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordIngest counts one ingest operation by outcome.
func recordIngest(ctx context.Context, outcome string) {
	if initMetrics() != nil {
		return
	}
	ingestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// recordRebuild counts one rebuild attempt by outcome.
func recordRebuild(ctx context.Context, outcome string) {
	if initMetrics() != nil {
		return
	}
	rebuildsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
