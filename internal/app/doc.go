// Package app wires the SalesPulse server together and manages its
// lifecycle: configuration loading, logging and telemetry setup, service
// construction, the chi router, and graceful shutdown.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, file and environment
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Resolve and create the data directories
//	4. Construct the dataset store, services, agent and job queue
//	5. Build the router and HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM and then shuts down in order: HTTP
// server, report job queue, WebSocket hub, telemetry providers. All
// initialization errors are returned to the caller, the package never
// calls os.Exit itself.
package app
