// Package internal contains the implementation packages of the talky server.
//
// # Package Organization
//
//   - paths: request path arithmetic and the confined join against the base directory
//   - scanner: directory listings, hidden-file filtering and sorting
//   - templates: override template lookup and the cached template renderer
//   - resolver: turns a request path into a file or a directory ready to render
//   - server: HTTP handling, the diagnostic page and live reload
//   - watcher: debounced file system notifications for live reload
//   - config: viper-backed configuration and its validation
//   - logging: structured logging over log/slog
//   - metrics: Prometheus collectors on a private registry
//   - errors: the typed TalkyError and its kinds
//   - version: build information
//   - testutils: fixtures shared by tests
//
// # Request Flow
//
// A request path is normalized and joined onto the base directory by
// resolver, which uses paths for the join. Directories are listed by scanner,
// and templates finds the deepest _index_talky.html between the base
// directory and the requested one. server renders the result with the
// templates renderer, or serves the file bytes.
//
// Every failure along the way is a *errors.TalkyError whose Kind decides how
// it is logged and which diagnostic page is shown.
package internal
