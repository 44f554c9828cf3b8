// Package app wires the extraction archive server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Resolve the data, reports and logs directories
//	2. Initialize OpenTelemetry (tracing and metrics exporters)
//	3. Build the ServiceContainer: loader, snapshot cache, registries,
//	   status engine, merger, CSV exporter and the services on top
//	4. Start the websocket hub and subscribe it to snapshot reloads
//	5. Optionally watch the extraction root and refresh on change
//	6. Set up the chi router and the HTTP server
//
// NewServiceContainer is also used by the command line tools, which need
// the same components without the HTTP layer.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests within
// Server.ShutdownTimeout, then stops the watcher, the runtime sampler and
// the hub, and flushes the telemetry providers.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
