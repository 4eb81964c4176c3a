// Package server exposes the verification workflow over HTTP: session
// creation, the worker trigger, and the polling status endpoint with its
// cache directives.
package server
