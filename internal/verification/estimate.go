package verification

const (
	estimateFloorSeconds   = 60
	estimateCeilingSeconds = 600
	estimateBaseSeconds    = 30
)

// EstimateDuration computes the expected verification duration in seconds.
// When the audio duration is known the estimate grows monotonically with it
// (half the audio length plus fixed overhead), bounded by a floor and a
// ceiling. Without audio metadata the fixed default applies.
func EstimateDuration(audio *AudioMetadata, defaultSeconds int) int {
	if audio == nil || audio.DurationSeconds <= 0 {
		return defaultSeconds
	}
	estimate := estimateBaseSeconds + int(audio.DurationSeconds/2)
	if estimate < estimateFloorSeconds {
		return estimateFloorSeconds
	}
	if estimate > estimateCeilingSeconds {
		return estimateCeilingSeconds
	}
	return estimate
}
