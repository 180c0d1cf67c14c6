// Package app wires the cvscan server together: configuration, logging,
// telemetry, the dataset store, the session services, the websocket hub
// and the HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from the YAML file and environment
//	2. Initialize logging and resolve the data directories
//	3. Set up OpenTelemetry providers and service metrics
//	4. Open the dataset store and restore stored recordings
//	5. Create the session, dataset, analysis and health services
//	6. Mount the API, websocket and metrics routes
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests build an Application with New, which takes an already loaded
// configuration, and serve Application.Router through httptest.
package app
