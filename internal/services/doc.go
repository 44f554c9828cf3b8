// Package services implements the application layer between the HTTP and CLI
// front ends and the reconciliation packages.
//
// # Services
//
//	- ReportService: snapshot access, student search, statistics and CSV exports
//	- ExtractionService: validates uploads and runs the gradebook/hours merge
//	- HealthService: liveness, readiness and version information
//
// Services take their collaborators as small interfaces so handlers and
// commands can be tested against fakes, and they never mutate a snapshot.
//
// # Error Handling
//
// Availability problems (missing directories, unreadable registries) degrade
// to empty results and are logged. Workbook problems surface as
// errors.AppError values, which the HTTP layer renders as RFC 7807 problems:
//
//	- STRUCTURE: a sheet or required column could not be found
//	- PARSING: a workbook could not be decoded
//	- VALIDATION: the request itself is malformed
package services
