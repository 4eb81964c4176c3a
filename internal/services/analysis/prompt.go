package analysis

import (
	"fmt"
	"strings"
)

const verificationPrompt = `You are an audio dataset verification engine for a data marketplace.
You receive a transcript sample of an audio submission together with the
seller's metadata. Evaluate the submission and respond with JSON only, in
exactly this shape:

{
  "quality_score": <number between 0.0 and 1.0>,
  "safety_passed": <true or false>,
  "insights": [<short observations about the content>],
  "concerns": [<issues a buyer should know about, may be empty>],
  "recommendations": [<suggestions for the seller, may be empty>]
}

quality_score reflects transcript coherence, audio-content richness, and
how well the content matches the declared metadata. safety_passed is false
only when the transcript contains clearly harmful or illegal content.
Do not include any text outside the JSON object.`

func buildUserPrompt(transcript string, sub Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(sub.Title))
	fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(sub.Description))
	fmt.Fprintf(&b, "Languages: %s\n", strings.Join(sub.Languages, ", "))
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(sub.Tags, ", "))
	b.WriteString("\nTranscript sample:\n")
	b.WriteString(transcript)
	return b.String()
}
