// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records answer-stream outcomes.
//
// Two observers are provided, both implementing stream.Observer:
//
//   - Tracker: in-process aggregate shown by the /stats command
//   - Metrics: Prometheus collectors, optionally served on /metrics
//
// Fanout combines them so a session reports to both.
//
// # Usage
//
//	tracker := telemetry.NewTracker()
//	metrics := telemetry.NewMetrics()
//	opts.Observer = telemetry.Fanout(tracker, metrics)
//	go metrics.Serve(ctx, cfg.Metrics.Addr, logger)
package telemetry
