// Package app provides the orchestration layer for the Bastion client.
//
// # Overview
//
// This package wires together configuration, logging, the daemon bridge,
// the session state containers and the terminal UI. It is the composition
// root where all dependencies are initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load client configuration from ~/.config/bastion/config.toml
//  2. Load user preferences (theme, last instance) with graceful fallbacks
//  3. Open the diagnostic log and build the structured logger
//  4. Initialize the HTTP client for the launcher daemon API
//  5. Create the session containers and subscribe them to the event bus
//  6. Start the background event stream pump
//  7. Start the TUI (or park headless) and block until exit
//
// # Data Flow
//
//	StartEventStream goroutine
//	  └─> long-poll /api/events
//	        └─> bus.Publish(topic, payload)
//	              └─> session handlers update the containers
//	                    └─> UI reads snapshots on its tick
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Log file cannot be opened
//   - Daemon client initialization failure
//
// Recoverable errors (logged, the client keeps running):
//   - Initial config refresh failure (daemon not up yet)
//   - Event stream poll failures (the pump retries with backoff)
//
// This ensures Bastion survives daemon restarts and network hiccups.
//
// # Usage Example
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{}); err != nil {
//		log.Fatalf("bastion failed: %v", err)
//	}
package app
