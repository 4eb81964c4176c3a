// Package fingerprint detects copyrighted material in audio submissions by
// generating a Chromaprint fingerprint with an external binary and looking
// it up against the AcoustID service. Matches below the confidence
// threshold are reported but treated as clean.
package fingerprint
