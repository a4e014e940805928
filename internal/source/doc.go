// Package source loads the list of domains to diagnose, either from a remote
// endpoint serving a JSON array of strings or from a local text file.
package source
