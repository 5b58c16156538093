// Package cmd provides the command-line interface for talky.
//
// # Available Commands
//
//   - serve: Serve a directory tree as browsable pages
//   - list: Print how a path resolves, without starting a server
//   - version: Show build information
//
// # Command Examples
//
//	// Serve ./public on port 8080 with live reload
//	talky serve --base-dir ./public --port 8080 --live-reload
//
//	// Check which listing template a directory would use
//	talky list /docs/guides --output json
//
// # Configuration Integration
//
// Commands read configuration from these sources, in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (TALKY_*, plus APP_PORT and BASE_DIR)
//  3. Configuration file (.talky.yml, --config or TALKY_CONFIG_FILE)
//  4. Default values (lowest priority)
package cmd
