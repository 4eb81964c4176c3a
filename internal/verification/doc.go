// Package verification implements the dataset-verification workflow: the
// dispatcher that creates sessions and fires off work, and the worker that
// drives each session through fetch, transcription, and analysis to a
// terminal state. The two sides share no memory beyond the dispatch queue;
// all durable coordination goes through the session store.
package verification
