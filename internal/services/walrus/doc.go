// Package walrus provides a minimal client for fetching immutable content
// blobs from a Walrus aggregator by blob ID.
package walrus
