// Package constants centralizes defaults shared across the CLI and the
// internal packages.
//
// Probe timeouts, vendor header names, file permissions and remote-source
// retry bounds live here so cmd/ and internal/ agree on them without
// import cycles.
package constants
