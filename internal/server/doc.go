// Package server exposes the Prometheus /metrics endpoint and run health
// probes while a long sync is in progress.
//
// The server is only started when metrics are enabled and the
// instrumentation provider exports to Prometheus. /healthz always answers
// 200 with the current run phase; /readyz answers 503 until mirroring has
// started.
package server
