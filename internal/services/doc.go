// Package services implements the business logic layer of SalesPulse. It
// sits between the HTTP handlers and the domain packages, so handlers stay
// focused on transport concerns and the analyses stay free of HTTP.
//
// # Services
//
//   - DatasetService: upload, list, preview and delete stored sales files
//   - AnalysisService: the direct analysis paths (describe, outliers,
//     correlations, trend), no language model involved
//   - ChatService: free-form questions through the tool-calling agent
//   - ReportService: asynchronous full-report jobs on the job queue
//   - HealthService: liveness and readiness probes
//
// # Conventions
//
// Every service follows the same shape: a NewXService constructor with a
// NewXServiceWithLogger variant for explicit observability wiring, methods
// that take a context.Context, sentinel errors (or pass-through of domain
// sentinels) that the transport layer maps to HTTP status codes with
// errors.Is, and structured logging under a fixed component attribute.
package services
