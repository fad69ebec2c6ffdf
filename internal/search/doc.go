// Package search finds the highest concurrency level at which a target still
// meets a success-rate threshold.
//
// A [Finder] repeatedly asks a [Prober] (normally a runner.Driver) to execute
// a fixed number of requests at one concurrency level and judges each run
// against the threshold and optional SLA criteria. Two strategies exist:
//
//   - Binary: bisects [start, max] between a known-good floor and a failing
//     ceiling, needing about log2(max) probes.
//   - Linear: walks start, start+step, ... up to max, optionally stopping at
//     the first failing level.
//
// Failing runs are data. Only errors from the prober itself abort a search.
package search
