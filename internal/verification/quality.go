package verification

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	minAudioBytes       = 1024
	minSampleRate       = 8000
	minDurationSeconds  = 1.0
	silenceAmplitude    = 327 // 1% of full scale for 16-bit PCM
	maxSilenceFraction  = 0.9
	sizeDriftTolerance  = 0.25
	durationDriftFactor = 0.25
)

// QualityReport summarizes the audio quality gate. Duration and sample rate
// are populated only when the container could be parsed.
type QualityReport struct {
	Passed          bool
	DurationSeconds float64
	SampleRate      int
	Issues          []string
}

// QualityCheck inspects fetched audio payloads before any paid pipeline
// stage runs. It is deliberately shallow: container sniffing, WAV header
// parsing, and a silence heuristic catch the common garbage submissions
// without decoding compressed audio.
type QualityCheck struct{}

// NewQualityCheck constructs the default quality gate.
func NewQualityCheck() *QualityCheck {
	return &QualityCheck{}
}

// Inspect checks the payload against its declared metadata. The report
// fails when any issue is found; issues name what a resubmitting seller
// would need to fix.
func (q *QualityCheck) Inspect(audio []byte, format string, declared *AudioMetadata) QualityReport {
	report := QualityReport{}

	if len(audio) < minAudioBytes {
		report.Issues = append(report.Issues, fmt.Sprintf("audio payload too small (%d bytes)", len(audio)))
		return report
	}

	sniffed := sniffContainer(audio)
	if declaredExt := containerForFormat(format); declaredExt != "" && sniffed != "" && declaredExt != sniffed {
		report.Issues = append(report.Issues,
			fmt.Sprintf("payload looks like %s but %s was declared", sniffed, declaredExt))
	}

	if sniffed == "wav" {
		q.inspectWAV(audio, declared, &report)
	} else if declared != nil && declared.SizeBytes > 0 {
		drift := math.Abs(float64(len(audio))-float64(declared.SizeBytes)) / float64(declared.SizeBytes)
		if drift > sizeDriftTolerance {
			report.Issues = append(report.Issues,
				fmt.Sprintf("payload size %d differs from declared %d bytes", len(audio), declared.SizeBytes))
		}
	}

	report.Passed = len(report.Issues) == 0
	return report
}

// inspectWAV parses the RIFF header to validate sample rate and duration
// and runs the silence heuristic over 16-bit PCM samples.
func (q *QualityCheck) inspectWAV(audio []byte, declared *AudioMetadata, report *QualityReport) {
	header, data, ok := parseWAV(audio)
	if !ok {
		report.Issues = append(report.Issues, "wav header could not be parsed")
		return
	}

	report.SampleRate = int(header.sampleRate)
	if header.sampleRate < minSampleRate {
		report.Issues = append(report.Issues,
			fmt.Sprintf("sample rate %d below the %d Hz minimum", header.sampleRate, minSampleRate))
	}

	bytesPerSecond := float64(header.sampleRate) * float64(header.channels) * float64(header.bitsPerSample) / 8
	if bytesPerSecond > 0 {
		report.DurationSeconds = float64(len(data)) / bytesPerSecond
	}
	if report.DurationSeconds > 0 && report.DurationSeconds < minDurationSeconds {
		report.Issues = append(report.Issues,
			fmt.Sprintf("audio too short (%.2fs)", report.DurationSeconds))
	}
	if declared != nil && declared.DurationSeconds > 0 && report.DurationSeconds > 0 {
		drift := math.Abs(report.DurationSeconds-declared.DurationSeconds) / declared.DurationSeconds
		if drift > durationDriftFactor {
			report.Issues = append(report.Issues,
				fmt.Sprintf("measured duration %.1fs differs from declared %.1fs", report.DurationSeconds, declared.DurationSeconds))
		}
	}

	if header.bitsPerSample == 16 {
		if silent := silentFraction(data); silent > maxSilenceFraction {
			report.Issues = append(report.Issues,
				fmt.Sprintf("too much silence (%.0f%% of samples)", silent*100))
		}
	}
}

type wavHeader struct {
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// parseWAV walks the RIFF chunk list for the fmt and data chunks. It
// tolerates extra chunks (LIST, fact) between them.
func parseWAV(audio []byte) (wavHeader, []byte, bool) {
	var header wavHeader
	if len(audio) < 44 || !bytes.HasPrefix(audio, []byte("RIFF")) || !bytes.Equal(audio[8:12], []byte("WAVE")) {
		return header, nil, false
	}

	offset := 12
	var data []byte
	haveFmt := false
	for offset+8 <= len(audio) {
		chunkID := string(audio[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(audio[offset+4 : offset+8]))
		body := offset + 8
		if chunkLen < 0 || body > len(audio) {
			break
		}
		end := body + chunkLen
		if end > len(audio) {
			end = len(audio)
		}
		switch chunkID {
		case "fmt ":
			if chunkLen >= 16 {
				header.channels = binary.LittleEndian.Uint16(audio[body+2 : body+4])
				header.sampleRate = binary.LittleEndian.Uint32(audio[body+4 : body+8])
				header.bitsPerSample = binary.LittleEndian.Uint16(audio[body+14 : body+16])
				haveFmt = true
			}
		case "data":
			data = audio[body:end]
		}
		offset = end
		if offset%2 == 1 {
			offset++
		}
	}

	if !haveFmt || data == nil || header.channels == 0 || header.sampleRate == 0 {
		return header, nil, false
	}
	return header, data, true
}

func silentFraction(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	silent := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		amp := int(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		if amp < 0 {
			amp = -amp
		}
		if amp < silenceAmplitude {
			silent++
		}
	}
	return float64(silent) / float64(samples)
}

func sniffContainer(audio []byte) string {
	switch {
	case len(audio) >= 12 && bytes.HasPrefix(audio, []byte("RIFF")) && bytes.Equal(audio[8:12], []byte("WAVE")):
		return "wav"
	case bytes.HasPrefix(audio, []byte("fLaC")):
		return "flac"
	case bytes.HasPrefix(audio, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(audio, []byte("ID3")):
		return "mp3"
	case len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		return "mp3"
	case len(audio) >= 12 && bytes.Equal(audio[4:8], []byte("ftyp")):
		return "m4a"
	default:
		return ""
	}
}

func containerForFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "audio/wav", "audio/x-wav", "wav":
		return "wav"
	case "audio/mpeg", "audio/mp3", "mp3":
		return "mp3"
	case "audio/flac", "flac":
		return "flac"
	case "audio/ogg", "ogg":
		return "ogg"
	case "audio/mp4", "audio/m4a", "m4a":
		return "m4a"
	default:
		return ""
	}
}
