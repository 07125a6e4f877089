// Package handlers contains HTTP handlers for the faultline HTTP API.
//
// This package provides handlers for:
//   - Health checks (monitoring)
//   - Listing and pruning the fault journal
//   - A demo endpoint that raises faults on request
//
// Errors are reported through the foundation/errors HTTP adapter and
// successful responses use the server/responses types.
package handlers
