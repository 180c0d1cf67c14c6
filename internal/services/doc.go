// Package services implements the application layer between the HTTP
// handlers and the analysis core.
//
//   - Session holds the declared scan rates and the recording attached to
//     each of them.
//   - DatasetService declares scan rates, stores uploads through a
//     DatasetStore and announces changes to websocket clients.
//   - AnalysisService extracts the second cycle of a recording, splits it
//     into anode and cathode halves, fits polynomials and exports reports.
//     Curves for all scan rates are computed in parallel.
//   - HealthService reports liveness, readiness and runtime statistics.
//
// Services return sentinel errors (ErrScanRateNotFound, ErrDatasetMissing,
// ...) or the typed errors of the core packages; handlers translate them
// into RFC 7807 problems.
package services
