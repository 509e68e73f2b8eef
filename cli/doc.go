// Package cli implements the command-line interface for cmsrelay.
//
// The cli package provides:
// - Loading the configuration file and applying flag overrides
// - The relay command with a live progress bar on terminals
// - The refs command listing what a relay would process
// - Run reports rendered as Markdown or written as JSON
package cli
