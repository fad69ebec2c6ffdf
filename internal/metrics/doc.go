// Package metrics defines per-request outcomes and the statistics derived from them.
//
// # Outcomes
//
// Every executed request produces exactly one [Outcome]. Outcomes are immutable
// values: the executor creates them, the driver consumes them.
//
//	o := metrics.Success(42*time.Millisecond, 200)
//	o := metrics.Timeout(30 * time.Second)
//
// # Statistics
//
// [Summarize] turns the complete outcome set of one run into [Stats]:
//
//	stats := metrics.Summarize(outcomes, elapsed)
//
// Percentiles use the nearest-rank method over every recorded latency, timeouts
// included (a timeout records the configured timeout as its latency). An empty
// outcome set yields zero for every latency statistic and for throughput.
//
// # Live Collection
//
// The [Collector] keeps running counters and an HDR histogram so progress can be
// displayed while a run is in flight. It is safe for concurrent use.
//
//	collector := metrics.NewCollector()
//	collector.Start()
//	collector.Observe(outcome)
//	snap := collector.Snapshot()
package metrics
