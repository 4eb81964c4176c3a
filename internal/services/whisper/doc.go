// Package whisper shells out to an external transcription binary to turn
// audio samples into transcripts for analysis.
package whisper
