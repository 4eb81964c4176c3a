// Package analysis wraps the chat-completion engine that scores
// submissions. Parsing is deliberately forgiving: the engine's transport
// failures are real errors, but a malformed payload is reported as
// ErrMalformedVerdict so callers can substitute the neutral default.
package analysis
