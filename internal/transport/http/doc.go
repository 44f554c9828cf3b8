// Package http implements the HTTP handlers of the archive API. Handlers only
// parse requests, call a service and shape the response; every error goes
// through errors.ErrorHandler so clients always receive RFC 7807 problem
// details.
//
// # Routes
//
// Mounted under /api by the app package:
//
//	GET  /health, /health/ready, /health/live   liveness and readiness
//	GET  /version                               build information
//	GET  /students/search?q=&course=            one student's status
//	GET  /stats                                 course overview and KPIs
//	GET  /stats/kpis.csv                        KPI table as CSV
//	GET  /snapshot                              snapshot metadata
//	GET  /snapshot/records?course=&offset=&limit=
//	GET  /snapshot/export.csv                   normalized rows as CSV
//	POST /extractions                           gradebook + hours merge
//
// CSV downloads carry a UTF-8 BOM so spreadsheet tools detect the encoding.
// POST /extractions takes a multipart form and answers with the generated
// .xlsx; its row count is echoed in X-Row-Count.
//
// # Testing
//
// Handlers are tested with httptest against fake services that implement
// the interfaces in interfaces.go.
package http
