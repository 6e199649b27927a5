// Package summarize turns a conversation transcript into a mind-map style
// blueprint. Summarization is best-effort: any failure degrades to a local
// outline built from the transcript itself.
package summarize

import (
	"context"
	"strings"
)

// Summarizer produces blueprint text for a transcript. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) string
}

const (
	// FallbackHeader labels content that was not produced by the model.
	FallbackHeader = "CONVERSATION SUMMARY (offline outline)"
	// fallbackLines is how many non-blank transcript lines the outline keeps.
	fallbackLines = 10
)

// Fallback builds the deterministic outline used whenever the model is
// unavailable: a labeled list of the first non-blank transcript lines.
func Fallback(transcript string) string {
	var b strings.Builder
	b.WriteString(FallbackHeader)
	b.WriteString("\n")

	n := 0
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
		n++
		if n == fallbackLines {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Offline is a Summarizer that always returns the fallback outline.
type Offline struct{}

func (Offline) Summarize(_ context.Context, transcript string) string {
	return Fallback(transcript)
}

// prompt wraps the transcript in the mind-map instruction.
func prompt(transcript string) string {
	return "Create a mind map style summary of this conversation, strictly using markdown formatting like:\n" +
		"- **Main Topic**\n  - *Subtopic 1*\n    - Detail 1\n    - Detail 2\n\n" +
		transcript
}
