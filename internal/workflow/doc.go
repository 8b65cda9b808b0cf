// Package workflow implements the Temporal workflow definitions for the
// consultation platform.
//
// The consultation workflow coordinates the multidisciplinary review of one
// case: it fans out opinion collection to the configured specialist panel,
// waits for the opinions to materialize, and hands them to the decision
// activity that produces the final report.
//
// All workflows follow Temporal best practices:
//
//   - Deterministic execution
//   - Proper error handling and retry policies
//   - Versioning support
//
// Workflows must not contain non-deterministic operations such as random
// number generation, system time access, or external I/O; those belong in
// activities.
package workflow
