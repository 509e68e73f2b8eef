// Package mcp implements the Model Context Protocol server for cmsrelay.
//
// The server exposes two tools over stdio: list_file_references runs the listing and
// extraction stages only, relay_files runs the whole relay and returns its report.
package mcp
