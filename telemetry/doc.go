// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry initializes OpenTelemetry tracing and metrics for the
// context graph service.
//
// # Description
//
// The package is opinionated about the API and flexible about the backend:
// OTel IS the abstraction layer. Packages obtain tracers and meters through
// otel.Tracer() / otel.Meter() directly, and operators swap backends by
// changing exporter configuration rather than code.
//
// Traces default to OTLP over gRPC (Jaeger speaks OTLP natively since 1.35).
// Metrics default to Prometheus, exposed for scraping via MetricsHandler().
// Both can be switched to stdout exporters for local debugging, or disabled
// entirely with "none".
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: otlp)
//   - OTEL_METRICS_EXPORTER: prometheus, otlp, stdout, or none (default: prometheus)
//   - CONTEXTGRAPH_ENV: environment name (default: development)
//
// # Thread Safety
//
// Init must be called once at startup. All other exported functions are safe
// for concurrent use after Init returns.
package telemetry
